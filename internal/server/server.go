package server

import (
	"log"
	"sync"

	"github.com/jdoherty/chatserver/internal/stats"
	"github.com/jdoherty/chatserver/internal/types"
)

const (
	metricActiveConnections = "ActiveConnections"
	metricLoadedRooms       = "LoadedRooms"
	metricRelayedMessages   = "RelayedMessages"
)

// ChatServer is the presence and typing relay. It owns the connection
// to room subscription registry and fans ephemeral events out to room
// subscribers. Nothing here is persisted and no membership checks are
// made: the authenticated connection is trusted.
type ChatServer struct {
	log            *log.Logger
	stats          stats.StatsProvider
	clients        map[*Client]struct{}
	clientsLock    sync.Mutex
	rooms          map[string]map[*Client]struct{}
	eventChan      chan *ClientMessage
	RegisterChan   chan *Client
	deRegisterChan chan *Client
	stop           chan struct{}
	done           chan struct{}
}

func NewChatServer(logger *log.Logger, statsProvider stats.StatsProvider) *ChatServer {
	statsProvider.RegisterMetric(metricActiveConnections)
	statsProvider.RegisterMetric(metricLoadedRooms)
	statsProvider.RegisterMetric(metricRelayedMessages)

	return &ChatServer{
		log:            logger,
		stats:          statsProvider,
		clients:        make(map[*Client]struct{}),
		rooms:          make(map[string]map[*Client]struct{}),
		eventChan:      make(chan *ClientMessage, 256),
		RegisterChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

func (cs *ChatServer) Run() {
	for {
		select {
		case msg := <-cs.eventChan:
			cs.dispatch(msg)
		case client := <-cs.RegisterChan:
			cs.log.Printf("adding connection from %q", client.user.Username)
			cs.addClient(client)
		case client := <-cs.deRegisterChan:
			cs.log.Printf("removing connection from %q", client.user.Username)
			cs.removeClient(client)
		case <-cs.stop:
			cs.log.Println("relay shutting down")
			close(cs.done)
			return
		}
	}
}

func (cs *ChatServer) dispatch(msg *ClientMessage) {
	switch {
	case msg.Join != nil:
		cs.handleJoin(msg)
	case msg.Leave != nil:
		cs.handleLeave(msg)
	case msg.Publish != nil:
		cs.handlePublish(msg)
	case msg.Typing != nil:
		cs.handleTyping(msg)
	case msg.Status != nil:
		cs.handleStatus(msg)
	default:
		msg.client.queueMessage(ErrInvalidMessage(msg.Id))
	}
}

func (cs *ChatServer) handleJoin(msg *ClientMessage) {
	c := msg.client
	roomId := msg.Join.RoomId
	if roomId == "" {
		c.queueMessage(ErrInvalidMessage(msg.Id))
		return
	}

	subscribers, ok := cs.rooms[roomId]
	if !ok {
		subscribers = make(map[*Client]struct{})
		cs.rooms[roomId] = subscribers
		cs.stats.Incr(metricLoadedRooms)
		cs.log.Printf("loaded room %q", roomId)
	}

	subscribers[c] = struct{}{}
	c.addRoom(roomId)

	c.queueMessage(NoErrOK(msg.Id))
}

func (cs *ChatServer) handleLeave(msg *ClientMessage) {
	cs.unsubscribe(msg.client, msg.Leave.RoomId)
	msg.client.queueMessage(NoErrOK(msg.Id))
}

func (cs *ChatServer) handlePublish(msg *ClientMessage) {
	roomId := msg.Publish.RoomId
	subscribers, ok := cs.rooms[roomId]
	if !ok {
		msg.client.queueMessage(ErrRoomNotFound(msg.Id))
		return
	}

	// every subscriber receives the message, including the sender's
	// other connections
	cs.broadcast(subscribers, &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        msg.Id,
			Timestamp: Now(),
		},
		Message: &MessageEvent{
			RoomId:  roomId,
			Message: msg.Publish.Message,
		},
	})
	cs.stats.Incr(metricRelayedMessages)
}

func (cs *ChatServer) handleTyping(msg *ClientMessage) {
	subscribers, ok := cs.rooms[msg.Typing.RoomId]
	if !ok {
		return
	}

	cs.broadcast(subscribers, &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Typing: &TypingNotification{
			RoomId: msg.Typing.RoomId,
			User: types.User{
				Id:       msg.client.user.Id,
				Username: msg.client.user.Username,
				Avatar:   msg.client.user.Avatar,
			},
		},
		SkipClient: msg.client,
	})
}

// handleStatus fans a presence change out to the subscribers of every
// room the sender is in, rather than to every connection on the server.
func (cs *ChatServer) handleStatus(msg *ClientMessage) {
	c := msg.client

	recipients := make(map[*Client]struct{})
	for _, roomId := range c.roomIds() {
		for sub := range cs.rooms[roomId] {
			if sub == c {
				continue
			}
			recipients[sub] = struct{}{}
		}
	}

	update := &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		StatusUpdate: &StatusUpdate{
			User: types.User{
				Id:       c.user.Id,
				Username: c.user.Username,
				Avatar:   c.user.Avatar,
				Status:   msg.Status.Status,
			},
		},
	}

	for sub := range recipients {
		sub.queueMessage(update)
	}
}

func (cs *ChatServer) unsubscribe(c *Client, roomId string) {
	subscribers, ok := cs.rooms[roomId]
	if !ok {
		return
	}

	delete(subscribers, c)
	c.delRoom(roomId)

	if len(subscribers) == 0 {
		delete(cs.rooms, roomId)
		cs.stats.Decr(metricLoadedRooms)
		cs.log.Printf("unloaded room %q", roomId)
	}
}

func (cs *ChatServer) broadcast(subscribers map[*Client]struct{}, msg *ServerMessage) {
	for client := range subscribers {
		if client == msg.SkipClient {
			continue
		}

		client.queueMessage(msg)
	}
}

func (cs *ChatServer) addClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	cs.clients[c] = struct{}{}
	cs.stats.Incr(metricActiveConnections)
}

// removeClient releases every subscription held by the connection. Runs
// on the server loop so registry access stays serialized.
func (cs *ChatServer) removeClient(c *Client) {
	for _, roomId := range c.roomIds() {
		cs.unsubscribe(c, roomId)
	}

	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	if _, ok := cs.clients[c]; ok {
		delete(cs.clients, c)
		cs.stats.Decr(metricActiveConnections)
	}
}

func (cs *ChatServer) Shutdown() {
	cs.log.Println("received shutdown signal")
	cs.clientsLock.Lock()
	for c := range cs.clients {
		c.stopClient()
	}
	cs.clientsLock.Unlock()

	close(cs.stop)

	<-cs.done
}
