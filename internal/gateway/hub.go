// Package gateway is the real-time front door of the seat coordinator.  It
// accepts websocket connections, routes their commands to the allocator and
// waitlist manager, detects disconnects, drives the waitlist drain, and
// pushes fresh state to every connected observer.
package gateway

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"time"

	"github.com/gorilla/websocket"

	"github.com/seatflow/seat-coordinator/internal/queue"
	"github.com/seatflow/seat-coordinator/internal/service"
)

// commandTimeout bounds the store round-trips of one command.
const commandTimeout = 5 * time.Second

// EventPublisher receives seat lifecycle events.  Publishing happens off
// the hub loop and failures are the publisher's problem; seat allocation
// never waits on the broker.
type EventPublisher func(ctx context.Context, event queue.SeatEvent)

// command pairs an inbound envelope with the connection that sent it.
type command struct {
	client *Client
	env    Envelope
}

// Hub owns the set of connected clients and is the single writer of all
// coordination state.  Every register, disconnect and client command funnels
// through one run loop, so command effects on the occupancy store and the
// waitlist are linearized; the occupancy store's conditional create remains
// the safety net underneath.
type Hub struct {
	allocator *service.SeatAllocator
	waitlist  *service.WaitlistManager
	publish   EventPublisher

	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	commands   chan command
	notify     chan struct{}
	done       chan struct{}
}

// NewHub wires a hub over the allocator and waitlist manager.  publish may
// be nil when no broker is configured.
func NewHub(allocator *service.SeatAllocator, waitlist *service.WaitlistManager, publish EventPublisher) *Hub {
	return &Hub{
		allocator:  allocator,
		waitlist:   waitlist,
		publish:    publish,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		commands:   make(chan command, 64),
		notify:     make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Attach adopts an upgraded websocket connection: it creates the client,
// registers it with the hub and starts the read/write pumps.  The returned
// client is owned by the hub from here on.
func (h *Hub) Attach(conn *websocket.Conn, operator bool) *Client {
	c := &Client{
		ID:       newConnectionID(),
		Operator: operator,
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, 64),
	}
	h.register <- c
	go c.writePump()
	go c.readPump()
	return c
}

// NotifyStateChange asks the hub to rebroadcast the current state.  Admin
// REST handlers call this after catalog or queue mutations so every
// connected observer catches up.  The nudge is coalescing and never blocks.
func (h *Hub) NotifyStateChange() {
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// Run processes hub traffic until ctx is cancelled.  It is the only
// goroutine that touches h.clients.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			// Closing done unblocks any readPump still trying to
			// unregister after the loop stops accepting.
			close(h.done)
			for _, c := range h.clients {
				close(c.send)
			}
			return
		case c := <-h.register:
			h.clients[c.ID] = c
			log.Printf("gateway: client connected: %s", c.ID)
		case c := <-h.unregister:
			if _, ok := h.clients[c.ID]; ok {
				delete(h.clients, c.ID)
				close(c.send)
				h.handleDisconnect(c)
			}
		case cmd := <-h.commands:
			h.dispatch(cmd)
		case <-h.notify:
			opCtx, cancel := context.WithTimeout(ctx, commandTimeout)
			h.broadcastState(opCtx)
			h.updateQueuePositions(opCtx)
			cancel()
		}
	}
}

func (h *Hub) dispatch(cmd command) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	switch cmd.env.Event {
	case evRequestSeat:
		h.handleRequestSeat(ctx, cmd)
	case evLeaveSeat:
		h.handleLeaveSeat(ctx, cmd.client)
	case evGetQueueStatus:
		h.handleGetQueueStatus(ctx, cmd.client)
	case evGetMerchantSeatStatus:
		h.handleMerchantStatus(ctx, cmd.client)
	default:
		cmd.client.enqueue(mustEnvelope(evError, errorData{Message: "unknown event"}))
	}
}

// handleRequestSeat assigns a free seat when one exists, otherwise puts the
// requester on the waitlist.  Seat selection is random among the currently
// available seats; no ordering is promised.
func (h *Hub) handleRequestSeat(ctx context.Context, cmd command) {
	c := cmd.client
	var req requestSeatData
	if len(cmd.env.Data) > 0 {
		_ = json.Unmarshal(cmd.env.Data, &req)
	}
	if req.DisplayName != "" {
		c.DisplayName = req.DisplayName
	}

	// A connection holds at most one seat.  A request from a connection
	// that is already seated is a client retry (the seatAssigned frame got
	// lost); re-confirm the existing assignment instead of allocating a
	// second seat that no departure path would ever free.
	held, err := h.allocator.SeatByConnection(ctx, c.ID)
	if err != nil {
		c.enqueue(mustEnvelope(evError, errorData{Message: "seat assignment failed, please retry"}))
		return
	}
	if held != nil {
		c.enqueue(mustEnvelope(evSeatAssigned, seatAssignedData{SeatLabel: held.Label, SeatID: held.ID}))
		return
	}

	available, err := h.allocator.ListAvailableSeats(ctx)
	if err != nil {
		c.enqueue(mustEnvelope(evError, errorData{Message: "seat assignment failed, please retry"}))
		return
	}

	if len(available) > 0 {
		seat := available[rand.Intn(len(available))]
		claimed, err := h.allocator.Claim(ctx, seat.ID, c.ID, c.DisplayName)
		if err != nil {
			c.enqueue(mustEnvelope(evError, errorData{Message: "seat assignment failed, please retry"}))
			return
		}
		c.enqueue(mustEnvelope(evSeatAssigned, seatAssignedData{SeatLabel: claimed.Label, SeatID: claimed.ID}))
		log.Printf("gateway: seat %d assigned to %s", claimed.Label, c.ID)
		h.emit(queue.SeatEvent{
			Type: queue.EventSeatClaimed, SeatID: claimed.ID, SeatLabel: claimed.Label,
			ConnectionID: c.ID, DisplayName: c.DisplayName,
		})
		h.broadcastState(ctx)
		return
	}

	position, err := h.waitlist.Join(ctx, c.ID, c.DisplayName, 1)
	if err != nil {
		c.enqueue(mustEnvelope(evError, errorData{Message: "could not join the waitlist"}))
		return
	}
	length, err := h.waitlist.Length(ctx)
	if err != nil {
		length = position
	}
	c.enqueue(mustEnvelope(evNeedQueue, needQueueData{Position: position, QueueLength: length}))
	log.Printf("gateway: client %s queued at position %d", c.ID, position)
	h.emit(queue.SeatEvent{
		Type: queue.EventQueueJoined, ConnectionID: c.ID, DisplayName: c.DisplayName, QueueLength: length,
	})
	h.broadcastState(ctx)
}

// handleLeaveSeat processes a voluntary leave: release whatever the
// connection holds, confirm to the requester, then hand the freed capacity
// to the waitlist.
func (h *Hub) handleLeaveSeat(ctx context.Context, c *Client) {
	seat, err := h.allocator.ReleaseByConnection(ctx, c.ID)
	if err != nil {
		c.enqueue(mustEnvelope(evError, errorData{Message: "could not release the seat"}))
		return
	}
	c.enqueue(mustEnvelope(evSeatReleased, map[string]string{"message": "seat released"}))
	if seat != nil {
		log.Printf("gateway: seat %d released by %s", seat.Label, c.ID)
		h.emit(queue.SeatEvent{
			Type: queue.EventSeatReleased, SeatID: seat.ID, SeatLabel: seat.Label, ConnectionID: c.ID,
		})
	}
	h.broadcastState(ctx)
	h.drain(ctx)
}

// handleDisconnect runs when the transport drops: the connection is removed
// from both possible states (seat holder, waitlist member), each removal
// being an idempotent no-op when it does not apply.
func (h *Hub) handleDisconnect(c *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	log.Printf("gateway: client disconnected: %s", c.ID)

	seat, err := h.allocator.ReleaseByConnection(ctx, c.ID)
	if err != nil {
		log.Printf("gateway: release on disconnect failed for %s: %v", c.ID, err)
	}
	wasWaiting := false
	if pos, err := h.waitlist.Position(ctx, c.ID); err == nil && pos > 0 {
		wasWaiting = true
	}
	if err := h.waitlist.Leave(ctx, c.ID); err != nil {
		log.Printf("gateway: waitlist leave on disconnect failed for %s: %v", c.ID, err)
	}
	if wasWaiting {
		if length, err := h.waitlist.Length(ctx); err == nil {
			h.emit(queue.SeatEvent{Type: queue.EventQueueLeft, ConnectionID: c.ID, QueueLength: length})
		}
	}

	if seat != nil {
		log.Printf("gateway: seat %d recovered from vanished client %s", seat.Label, c.ID)
		h.emit(queue.SeatEvent{
			Type: queue.EventSeatReleased, SeatID: seat.ID, SeatLabel: seat.Label, ConnectionID: c.ID,
		})
		h.broadcastState(ctx)
		h.drain(ctx)
		return
	}
	h.broadcastState(ctx)
	h.updateQueuePositions(ctx)
}

// handleGetQueueStatus answers the requester only.
func (h *Hub) handleGetQueueStatus(ctx context.Context, c *Client) {
	position, err := h.waitlist.Position(ctx, c.ID)
	if err != nil {
		c.enqueue(mustEnvelope(evError, errorData{Message: "could not read queue status"}))
		return
	}
	if position == -1 {
		c.enqueue(mustEnvelope(evQueueStatus, queueStatusData{InQueue: false}))
		return
	}
	length, err := h.waitlist.Length(ctx)
	if err != nil {
		length = position
	}
	c.enqueue(mustEnvelope(evQueueStatus, queueStatusData{InQueue: true, Position: position, QueueLength: length}))
}

// handleMerchantStatus sends the full floor view to an operator connection.
func (h *Hub) handleMerchantStatus(ctx context.Context, c *Client) {
	if !c.Operator {
		c.enqueue(mustEnvelope(evError, errorData{Message: "forbidden"}))
		return
	}
	payload, err := h.merchantPayload(ctx)
	if err != nil {
		c.enqueue(mustEnvelope(evError, errorData{Message: "could not read seat status"}))
		return
	}
	c.enqueue(mustEnvelope(evMerchantSeatStatus, payload))
}

// drain reseats waiting connections while capacity lasts: pop the head,
// claim a random available seat for it, notify the winner.  Entries whose
// connection vanished or whose claim fails are discarded — the guest is
// gone, re-inserting them would stall everyone behind.  The loop ends when
// seats or waiters run out, then everybody gets the freshest snapshot.
func (h *Hub) drain(ctx context.Context) {
	for {
		available, err := h.allocator.ListAvailableSeats(ctx)
		if err != nil || len(available) == 0 {
			break
		}
		entry, err := h.waitlist.PopNext(ctx)
		if err != nil || entry == nil {
			break
		}
		target, connected := h.clients[entry.ConnectionID]
		if !connected {
			continue
		}
		seat := available[rand.Intn(len(available))]
		claimed, err := h.allocator.Claim(ctx, seat.ID, entry.ConnectionID, entry.DisplayName)
		if err != nil {
			log.Printf("gateway: drain claim failed for %s: %v", entry.ConnectionID, err)
			continue
		}
		target.enqueue(mustEnvelope(evSeatAssigned, seatAssignedData{SeatLabel: claimed.Label, SeatID: claimed.ID}))
		log.Printf("gateway: seat %d assigned to queued client %s", claimed.Label, entry.ConnectionID)
		h.emit(queue.SeatEvent{
			Type: queue.EventSeatClaimed, SeatID: claimed.ID, SeatLabel: claimed.Label,
			ConnectionID: entry.ConnectionID, DisplayName: entry.DisplayName,
		})
	}
	h.broadcastState(ctx)
	h.updateQueuePositions(ctx)
}

// broadcastState pushes the freshest aggregate snapshot to every connection
// and the full merchant view to operators.  Snapshots are computed at send
// time, never cached, so a client can never observe state move backwards.
func (h *Hub) broadcastState(ctx context.Context) {
	stats, err := h.allocator.Statistics(ctx)
	if err != nil {
		log.Printf("gateway: statistics failed: %v", err)
		return
	}
	general := mustEnvelope(evSeatStatus, statsPayload(*stats))

	var merchant []byte
	payload, err := h.merchantPayload(ctx)
	if err == nil {
		merchant = mustEnvelope(evMerchantSeatUpdate, payload)
	} else {
		log.Printf("gateway: merchant payload failed: %v", err)
	}

	var evicted []*Client
	for id, c := range h.clients {
		if !c.enqueue(general) {
			delete(h.clients, id)
			close(c.send)
			evicted = append(evicted, c)
			continue
		}
		if c.Operator && merchant != nil {
			c.enqueue(merchant)
		}
	}
	// An evicted client is gone as far as the hub is concerned; run the
	// same recovery as a transport-level disconnect so its seat or waitlist
	// entry does not stay held by a connection nobody will ever hear from.
	// The readPump's later unregister no-ops since the map entry is gone.
	for _, c := range evicted {
		log.Printf("gateway: client %s evicted, send buffer full", c.ID)
		h.handleDisconnect(c)
	}
}

// updateQueuePositions tells each still-waiting connection its current
// 1-based position.
func (h *Hub) updateQueuePositions(ctx context.Context) {
	entries, err := h.waitlist.List(ctx)
	if err != nil {
		log.Printf("gateway: waitlist list failed: %v", err)
		return
	}
	for i, entry := range entries {
		c, ok := h.clients[entry.ConnectionID]
		if !ok {
			continue
		}
		c.enqueue(mustEnvelope(evQueueUpdate, queueUpdateData{Position: i + 1, QueueLength: len(entries)}))
	}
}

func (h *Hub) merchantPayload(ctx context.Context) (*merchantStatusData, error) {
	seats, err := h.allocator.SeatsWithStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := h.allocator.Statistics(ctx)
	if err != nil {
		return nil, err
	}
	queueList, err := h.waitlist.List(ctx)
	if err != nil {
		return nil, err
	}
	return &merchantStatusData{
		Seats:      seats,
		Statistics: *stats,
		QueueList:  queueList,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// emit hands an event to the publisher off the hub loop.
func (h *Hub) emit(event queue.SeatEvent) {
	if h.publish == nil {
		return
	}
	event.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	go h.publish(context.Background(), event)
}
