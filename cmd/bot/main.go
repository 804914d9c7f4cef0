package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"strings"
	"sync"
	"time"

	"cell-arena/internal/game"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	tickInterval = 100 * time.Millisecond
	stepDistance = 40.0
)

type serverFrame struct {
	Event string
	json  json.RawMessage
	mpack msgpack.RawMessage
}

func (f serverFrame) decode(v any) error {
	if f.mpack != nil {
		return msgpack.Unmarshal(f.mpack, v)
	}
	return json.Unmarshal(f.json, v)
}

type botClient struct {
	name  string
	codec string
	conn  *websocket.Conn
	inbox chan serverFrame
	done  chan error

	writeMu sync.Mutex

	mu       sync.Mutex
	identity game.Identity
	view     game.View
	haveView bool

	sent     int
	rejected int
	respawns int
}

func main() {
	wsURL := flag.String("ws", "ws://localhost:3000/ws", "arena server websocket url")
	clientCount := flag.Int("clients", 4, "number of bot clients")
	duration := flag.Duration("duration", 30*time.Second, "how long the bots play")
	codec := flag.String("codec", "json", "frame codec: json or msgpack")
	flag.Parse()

	if *clientCount < 1 {
		fmt.Println("clients must be >= 1")
		os.Exit(1)
	}
	if *codec != "json" && *codec != "msgpack" {
		fmt.Println("codec must be json or msgpack")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	bots := make([]*botClient, 0, *clientCount)
	for index := 0; index < *clientCount; index++ {
		client, err := newBotClient(ctx, *wsURL, *codec, fmt.Sprintf("bot-%d", index+1))
		if err != nil {
			fail(err)
		}
		bots = append(bots, client)
	}
	defer func() {
		for _, client := range bots {
			client.close()
		}
	}()

	var wg sync.WaitGroup
	errs := make(chan error, len(bots))
	for _, client := range bots {
		wg.Add(1)
		go func(c *botClient) {
			defer wg.Done()
			if err := c.play(ctx); err != nil {
				errs <- fmt.Errorf("%s: %w", c.name, err)
			}
		}(client)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		fail(err)
	}

	for _, client := range bots {
		_ = client.send(game.ReducerDespawnPlayer, nil)
		client.mu.Lock()
		rejected := client.rejected
		client.mu.Unlock()
		fmt.Printf("%s: sent %d requests, %d rejected, %d respawns\n",
			client.name, client.sent, rejected, client.respawns)
	}
	fmt.Println("arena-bot: session complete")
}

func newBotClient(ctx context.Context, wsURL, codec, name string) (*botClient, error) {
	url := wsURL
	if codec != "json" {
		url += "?codec=" + codec
	}
	conn, err := dialWithRetry(ctx, url)
	if err != nil {
		return nil, err
	}
	client := &botClient{
		name:  name,
		codec: codec,
		conn:  conn,
		inbox: make(chan serverFrame, 256),
		done:  make(chan error, 1),
	}
	go client.readLoop()

	hello, err := client.waitFor(ctx, func(f serverFrame) bool { return f.Event == "hello" })
	if err != nil {
		client.close()
		return nil, fmt.Errorf("hello: %w", err)
	}
	var payload struct {
		Identity game.Identity `json:"identity" msgpack:"identity"`
	}
	if err := hello.decode(&payload); err != nil {
		client.close()
		return nil, fmt.Errorf("decode hello: %w", err)
	}
	client.identity = payload.Identity

	if err := client.spawn(); err != nil {
		client.close()
		return nil, err
	}
	return client, nil
}

func (c *botClient) close() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *botClient) readLoop() {
	for {
		messageType, payload, err := c.conn.ReadMessage()
		if err != nil {
			c.done <- err
			close(c.done)
			return
		}

		var frame serverFrame
		if messageType == websocket.BinaryMessage {
			var envelope struct {
				Event string             `msgpack:"event"`
				Data  msgpack.RawMessage `msgpack:"data"`
			}
			if err := msgpack.Unmarshal(payload, &envelope); err != nil {
				continue
			}
			frame = serverFrame{Event: envelope.Event, mpack: envelope.Data}
		} else {
			var envelope struct {
				Event string          `json:"event"`
				Data  json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal(payload, &envelope); err != nil {
				continue
			}
			frame = serverFrame{Event: envelope.Event, json: envelope.Data}
		}

		c.handleFrame(frame)
		select {
		case c.inbox <- frame:
		default:
		}
	}
}

func (c *botClient) handleFrame(frame serverFrame) {
	switch frame.Event {
	case "world:state":
		var view game.View
		if frame.decode(&view) == nil {
			c.mu.Lock()
			c.view = view
			c.haveView = true
			c.mu.Unlock()
		}
	case "error":
		c.mu.Lock()
		c.rejected++
		c.mu.Unlock()
	}
}

// send writes one request. Msgpack args go through a JSON round trip so the
// server sees the same field names either way.
func (c *botClient) send(reducer string, args any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.sent++

	var raw json.RawMessage
	if args != nil {
		data, err := json.Marshal(args)
		if err != nil {
			return err
		}
		raw = data
	}

	if c.codec != "msgpack" {
		return c.conn.WriteJSON(game.Request{Reducer: reducer, Args: raw})
	}

	frame := map[string]any{"reducer": reducer}
	if raw != nil {
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			return err
		}
		frame["args"] = fields
	}
	data, err := msgpack.Marshal(frame)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (c *botClient) spawn() error {
	return c.send(game.ReducerSpawnPlayer, game.SpawnArgs{Name: c.name})
}

func (c *botClient) waitFor(ctx context.Context, predicate func(serverFrame) bool) (serverFrame, error) {
	for {
		select {
		case frame := <-c.inbox:
			if predicate(frame) {
				return frame, nil
			}
		case err := <-c.done:
			if err != nil {
				return serverFrame{}, err
			}
			return serverFrame{}, fmt.Errorf("connection closed")
		case <-ctx.Done():
			return serverFrame{}, ctx.Err()
		}
	}
}

// play steers toward the nearest pellet every tick until ctx expires, and
// now and then exercises the split, eject and player-eating requests.
func (c *botClient) play(ctx context.Context) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-c.done:
			if err != nil {
				return err
			}
			return fmt.Errorf("connection closed")
		case <-ticker.C:
		}

		c.mu.Lock()
		view, ready := c.view, c.haveView
		c.mu.Unlock()
		if !ready {
			continue
		}

		if err := c.step(view); err != nil {
			return err
		}
	}
}

func (c *botClient) step(view game.View) error {
	var me *game.Player
	for i := range view.Players {
		if view.Players[i].Identity == c.identity {
			me = &view.Players[i]
			break
		}
	}
	if me == nil {
		c.respawns++
		return c.spawn()
	}

	tx, ty, ok := nearestFood(view.Food, me.X, me.Y)
	if !ok {
		tx = float64(view.Config.WorldWidth) / 2
		ty = float64(view.Config.WorldHeight) / 2
	}
	nx, ny := stepToward(me.X, me.Y, tx, ty, stepDistance)
	if err := c.send(game.ReducerUpdatePosition, game.PositionArgs{X: nx, Y: ny}); err != nil {
		return err
	}

	for _, f := range view.Food {
		if game.Overlaps(nx, ny, me.Radius, f.X, f.Y, f.Radius, game.EatTolerance) {
			if err := c.send(game.ReducerEatFood, game.EatFoodArgs{FoodID: f.ID}); err != nil {
				return err
			}
		}
	}
	for _, m := range view.Ejected {
		if game.Overlaps(nx, ny, me.Radius, m.X, m.Y, m.Radius, game.EatTolerance) {
			if err := c.send(game.ReducerEatEjectedMass, game.EatEjectedArgs{MassID: m.ID}); err != nil {
				return err
			}
		}
	}
	for _, other := range view.Players {
		if other.Identity == c.identity || me.Mass < other.Mass*game.SizeAdvantage {
			continue
		}
		if game.Overlaps(nx, ny, me.Radius, other.X, other.Y, 0, game.EatTolerance) {
			if err := c.send(game.ReducerEatPlayer, game.EatPlayerArgs{Target: other.Identity}); err != nil {
				return err
			}
		}
	}

	dir := game.DirectionArgs{DirX: tx - me.X, DirY: ty - me.Y}
	switch roll := rand.Float64(); {
	case roll < 0.02 && me.Mass >= game.MinSplitMass:
		return c.send(game.ReducerSplitCell, dir)
	case roll < 0.04 && me.Mass > game.BaseMass+game.EjectMassAmount:
		return c.send(game.ReducerEjectMass, dir)
	}
	return nil
}

func nearestFood(food []game.FoodPellet, x, y float64) (float64, float64, bool) {
	best := math.Inf(1)
	var bx, by float64
	for _, f := range food {
		if d := math.Hypot(f.X-x, f.Y-y); d < best {
			best, bx, by = d, f.X, f.Y
		}
	}
	return bx, by, !math.IsInf(best, 1)
}

func stepToward(x, y, tx, ty, step float64) (float64, float64) {
	dx, dy := tx-x, ty-y
	dist := math.Hypot(dx, dy)
	if dist <= step {
		return tx, ty
	}
	return x + dx/dist*step, y + dy/dist*step
}

func dialWithRetry(ctx context.Context, wsURL string) (*websocket.Conn, error) {
	if !strings.HasPrefix(wsURL, "ws://") && !strings.HasPrefix(wsURL, "wss://") {
		return nil, fmt.Errorf("invalid ws url: %s", wsURL)
	}
	var lastErr error
	for attempt := 0; attempt < 12; attempt++ {
		dialer := websocket.DefaultDialer
		conn, _, err := dialer.DialContext(ctx, wsURL, nil)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(180 * time.Millisecond):
		}
	}
	return nil, lastErr
}

func fail(err error) {
	fmt.Println(err.Error())
	os.Exit(1)
}
