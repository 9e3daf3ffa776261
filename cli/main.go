// Package main provides a CLI that watches a thread's run events and can
// trigger runs to be driven.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const typeSubscribed = "subscribed"

// Frame holds the fields common to every frame the server pushes.
type Frame struct {
	Type     string          `json:"type"`
	Ts       int64           `json:"ts"`
	RunID    string          `json:"run_id,omitempty"`
	ThreadID string          `json:"thread_id,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Client is a thread event subscriber.
type Client struct {
	conn     *websocket.Conn
	baseURL  string
	threadID string
	done     chan struct{}
}

// NewClient connects to the thread stream served at addr.
func NewClient(addr, threadID string) (*Client, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse addr: %w", err)
	}
	streamURL := *u
	streamURL.Path = "/v1/threads/" + url.PathEscape(threadID) + "/stream"

	conn, _, err := websocket.DefaultDialer.Dial(streamURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	httpURL := *u
	httpURL.Path = ""
	switch httpURL.Scheme {
	case "wss":
		httpURL.Scheme = "https"
	default:
		httpURL.Scheme = "http"
	}

	return &Client{
		conn:     conn,
		baseURL:  httpURL.String(),
		threadID: threadID,
		done:     make(chan struct{}),
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	close(c.done)
	return c.conn.Close()
}

// WaitSubscribed reads the subscription acknowledgment.
func (c *Client) WaitSubscribed() error {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read ack: %w", err)
	}
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return fmt.Errorf("unmarshal ack: %w", err)
	}
	if frame.Type != typeSubscribed {
		return fmt.Errorf("expected %s, got: %s", typeSubscribed, frame.Type)
	}
	return nil
}

// Drive asks the server to drive a run of the watched thread.
func (c *Client) Drive(runID string) (string, error) {
	endpoint := fmt.Sprintf("%s/v1/threads/%s/runs/%s/drive", c.baseURL, url.PathEscape(c.threadID), url.PathEscape(runID))
	resp, err := http.Post(endpoint, "application/json", nil)
	if err != nil {
		return "", fmt.Errorf("drive: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read drive response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("drive failed [%d]: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return string(body), nil
}

// ReadMessages reads and prints frames from the server.
func (c *Client) ReadMessages() {
	for {
		select {
		case <-c.done:
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					logrus.Printf("Read error: %v", err)
				}
				return
			}

			var frame Frame
			if err := json.Unmarshal(data, &frame); err != nil {
				logrus.Printf("Unmarshal error: %v", err)
				continue
			}

			ts := time.UnixMilli(frame.Ts).Format(time.TimeOnly)
			fmt.Printf("\n%s [%s] run=%s %s\n", ts, frame.Type, frame.RunID, string(frame.Payload))
		}
	}
}

func main() {
	addr := flag.String("addr", "ws://localhost:8080", "Server address")
	threadID := flag.String("thread", "", "Thread ID to watch")
	runID := flag.String("drive", "", "Run ID to drive once connected")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05"})

	if *threadID == "" {
		logrus.Fatal("-thread is required")
	}

	fmt.Printf("Connecting to %s...\n", *addr)
	client, err := NewClient(*addr, *threadID)
	if err != nil {
		logrus.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	if err := client.WaitSubscribed(); err != nil {
		logrus.Fatalf("Subscribe failed: %v", err)
	}
	fmt.Printf("Watching thread %s\n", *threadID)
	fmt.Println("Commands: drive <run_id>, /quit to exit")

	go client.ReadMessages()

	if *runID != "" {
		go func() {
			out, err := client.Drive(*runID)
			if err != nil {
				logrus.Printf("%v", err)
				return
			}
			fmt.Printf("\nDrive finished: %s\n", out)
		}()
	}

	// Handle Ctrl+C
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		select {
		case <-interrupt:
			fmt.Println("\nInterrupted")
			return
		default:
			if !scanner.Scan() {
				return
			}

			input := strings.TrimSpace(scanner.Text())
			switch {
			case input == "":
				continue
			case input == "/quit":
				fmt.Println("Bye!")
				return
			case strings.HasPrefix(input, "drive "):
				id := strings.TrimSpace(strings.TrimPrefix(input, "drive "))
				go func() {
					out, err := client.Drive(id)
					if err != nil {
						logrus.Printf("%v", err)
						return
					}
					fmt.Printf("\nDrive finished: %s\n", out)
				}()
			default:
				fmt.Println("Unknown command")
			}
		}
	}
}
