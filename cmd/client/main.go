package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"github.com/sghaffari/chatrelay/internal/domain"
)

var (
	addr   = flag.String("addr", "localhost:3001", "relay server address")
	room   = flag.String("room", "general", "room to join")
	sender = flag.String("sender", "", "sender id attached to outgoing messages")
)

func main() {
	flag.Parse()

	if *sender == "" {
		*sender = getSenderID()
	}

	conn := connectWebSocket()
	defer conn.Close()

	joinRoom(conn)

	// OS interrupt signals
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	// Start goroutine to listen for incoming messages
	done := make(chan struct{})
	go readMessages(conn, done)

	fmt.Println("Write Messages (Press Enter to Send):")
	writeMessages(conn, interrupt, done)
}

func getSenderID() string {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("Enter your sender id: ")
	scanner.Scan()
	return scanner.Text()
}

func connectWebSocket() *websocket.Conn {
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Failed to connect to relay server: %v", err)
	}
	log.Println("Connected to relay server.")
	return conn
}

func joinRoom(conn *websocket.Conn) {
	payload, _ := json.Marshal(domain.JoinRoomRequest{RoomID: *room, SenderID: *sender})
	err := conn.WriteJSON(domain.Envelope{Event: domain.EventJoinRoom, Data: payload})
	if err != nil {
		log.Fatalf("Failed to join room %s: %v", *room, err)
	}
	log.Printf("Joined room %s", *room)
}

func readMessages(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		var event domain.NewMessageEvent
		if err := conn.ReadJSON(&event); err != nil {
			log.Printf("Error reading message: %v", err)
			return
		}
		if event.Event != domain.EventNewMessage {
			continue
		}

		msg := event.Data
		fmt.Printf("\n[%s] %s: %s\n", msg.CreatedAt, msg.Sender.Nickname, msg.Content)
	}
}

func writeMessages(conn *websocket.Conn, interrupt chan os.Signal, done chan struct{}) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection...")
			err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Printf("Error during close: %v", err)
			}
			return
		default:
			if scanner.Scan() {
				content := scanner.Text()
				if content == "" {
					continue
				}

				payload, _ := json.Marshal(domain.SendMessageRequest{
					RoomID:   *room,
					SenderID: *sender,
					Content:  content,
				})
				err := conn.WriteJSON(domain.Envelope{Event: domain.EventSendMessage, Data: payload})
				if err != nil {
					log.Printf("Error sending message: %v", err)
					return
				}
			}
		}
	}
}
