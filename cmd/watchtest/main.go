// Package main provides a stress testing tool for the live sync WebSocket
// endpoint. Each client opens /api/ws/live, watches the thread list of a
// thema, and counts the snapshots pushed to it.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"agora/internal/config"
	"agora/internal/identity"
	"agora/internal/models"

	"github.com/gorilla/websocket"
)

// Metrics tracks the test results
type Metrics struct {
	ConnectionsAttempted int64
	ConnectionsSuccess   int64
	ConnectionsFailed    int64
	WatchesOpened        int64
	SnapshotsReceived    int64
	Errors               int64
}

var metrics Metrics

func main() {
	host := flag.String("host", "localhost:8080", "API server host")
	token := flag.String("token", "", "JWT to authenticate with (minted locally when empty)")
	themaID := flag.String("thema", "", "Thema ID whose thread list each client watches")
	clients := flag.Int("clients", 50, "Number of concurrent clients")
	duration := flag.Duration("duration", 30*time.Second, "Test duration")
	flag.Parse()

	if *themaID == "" {
		log.Fatal("❌ -thema is required")
	}

	log.Printf("🚀 Starting Live Sync Stress Test")
	log.Printf("Target: %s", *host)
	log.Printf("Thema: %s", *themaID)
	log.Printf("Clients: %d", *clients)
	log.Printf("Duration: %v", *duration)

	if *token == "" {
		minted, err := mintToken(*duration)
		if err != nil {
			log.Fatalf("❌ Token minting failed: %v", err)
		}
		*token = minted
		log.Printf("✅ Minted a local token from JWT_SECRET")
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup
	stopChan := make(chan struct{})

	// Start clients
	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go runClient(*host, *token, *themaID, stopChan, &wg)
		time.Sleep(20 * time.Millisecond) // Stagger connections
	}

	// Wait for duration or interrupt
	select {
	case <-time.After(*duration):
		log.Println("⏱️  Test duration reached")
	case <-interrupt:
		log.Println("🛑 Interrupted by user")
	}

	close(stopChan)
	log.Println("Waiting for clients to disconnect...")
	wg.Wait()

	printMetrics()
}

// mintToken signs a throwaway identity with the locally configured secret.
// Works only against a server sharing the same JWT_SECRET.
func mintToken(ttl time.Duration) (string, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return "", err
	}
	provider := identity.NewJWTProvider(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	return provider.Mint(models.Identity{
		UID:         "u_watchtest",
		DisplayName: "Watch Test",
		Handle:      "watchtest",
	}, ttl+time.Minute)
}

func runClient(host, token, themaID string, stopChan <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	atomic.AddInt64(&metrics.ConnectionsAttempted, 1)

	u := url.URL{Scheme: "ws", Host: host, Path: "/api/ws/live", RawQuery: "token=" + url.QueryEscape(token)}

	c, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		atomic.AddInt64(&metrics.ConnectionsFailed, 1)
		atomic.AddInt64(&metrics.Errors, 1)
		return
	}
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = c.Close() }()

	atomic.AddInt64(&metrics.ConnectionsSuccess, 1)

	watch := map[string]string{"type": "watch", "view": "threads", "themaId": themaID}
	watchJSON, _ := json.Marshal(watch)
	if err := c.WriteMessage(websocket.TextMessage, watchJSON); err != nil {
		atomic.AddInt64(&metrics.Errors, 1)
		return
	}
	atomic.AddInt64(&metrics.WatchesOpened, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, payload, err := c.ReadMessage()
			if err != nil {
				return
			}
			var frame struct {
				Type string `json:"type"`
			}
			if json.Unmarshal(payload, &frame) == nil && frame.Type == "snapshot" {
				atomic.AddInt64(&metrics.SnapshotsReceived, 1)
			}
		}
	}()

	select {
	case <-stopChan:
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	case <-done:
		atomic.AddInt64(&metrics.Errors, 1)
		return
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

func printMetrics() {
	log.Println("\n📊 Test Results")
	log.Println("===============")
	log.Printf("Connections Attempted: %d", atomic.LoadInt64(&metrics.ConnectionsAttempted))
	log.Printf("Connections Successful: %d", atomic.LoadInt64(&metrics.ConnectionsSuccess))
	log.Printf("Connections Failed: %d", atomic.LoadInt64(&metrics.ConnectionsFailed))
	log.Printf("Watches Opened: %d", atomic.LoadInt64(&metrics.WatchesOpened))
	log.Printf("Snapshots Received: %d", atomic.LoadInt64(&metrics.SnapshotsReceived))
	log.Printf("Total Errors: %d", atomic.LoadInt64(&metrics.Errors))
}
