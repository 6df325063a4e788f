package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Customer-side simulator: subscribes to the panel's push endpoint, sends
// chat messages and walks an order through its lifecycle, so the panel can
// be exercised end to end without the real backend UI.

var (
	panelURL = flag.String("panel", "http://localhost:8080", "panel base URL")
	chatID   = flag.Int("chat", 1, "chat id to message")
	orderID  = flag.Int("order", 0, "order id to advance to completion (0 to skip)")
)

func main() {
	flag.Parse()

	go watchPush()

	if *orderID != 0 {
		go driveOrder(*orderID)
	}

	sendMessages(*chatID)

	select {}
}

func watchPush() {
	url := "ws" + (*panelURL)[len("http"):] + "/ws"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Printf("Push connection failed: %v", err)
		return
	}
	defer c.Close()

	for {
		var event map[string]interface{}
		if err := c.ReadJSON(&event); err != nil {
			log.Printf("Push read failed: %v", err)
			return
		}
		fmt.Printf("Push event: %v\n", event)
	}
}

func sendMessages(chatID int) {
	texts := []string{
		"Hello, is my order on the way?",
		"Great, thank you!",
	}

	for _, text := range texts {
		body, _ := json.Marshal(map[string]string{"text": text})
		resp, err := http.Post(
			fmt.Sprintf("%s/api/v1/chats/%d/messages", *panelURL, chatID),
			"application/json",
			bytes.NewBuffer(body),
		)
		if err != nil {
			log.Printf("Send failed: %v", err)
			return
		}
		resp.Body.Close()
		fmt.Printf("Sent %q, status: %d\n", text, resp.StatusCode)
		time.Sleep(5 * time.Second)
	}
}

func driveOrder(orderID int) {
	// Accept, then keep advancing until the panel reports a conflict or
	// the order goes terminal.
	post(fmt.Sprintf("/api/v1/orders/%d/accept", orderID))

	for i := 0; i < 4; i++ {
		time.Sleep(10 * time.Second)
		post(fmt.Sprintf("/api/v1/orders/%d/advance", orderID))
	}
}

func post(path string) {
	resp, err := http.Post(*panelURL+path, "application/json", nil)
	if err != nil {
		log.Printf("POST %s failed: %v", path, err)
		return
	}
	resp.Body.Close()
	fmt.Printf("POST %s, status: %d\n", path, resp.StatusCode)
}
