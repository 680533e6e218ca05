package hostsim

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// DisplayBridge implements vm.Display by buffering the live Form's pixel
// state and streaming dirty-rectangle notifications to every connected
// websocket viewer, per SPEC_FULL.md's domain-stack item — the pattern
// is grounded in mknyszek-greentea-visuals' frame-streaming viewer
// (cmd/gen / cmd/push in that repo), adapted here to push incremental
// dirty rects instead of whole-frame images.
type DisplayBridge struct {
	mu      sync.Mutex
	width   int
	height  int
	pixels  []uint16 // one word per 16 horizontal pixels, row-major

	upgrader websocket.Upgrader
	viewers  map[*websocket.Conn]struct{}
}

// NewDisplayBridge creates a bridge sized to width x height pixels.
func NewDisplayBridge(width, height int) *DisplayBridge {
	wordsPerLine := (width + 15) / 16
	return &DisplayBridge{
		width:   width,
		height:  height,
		pixels:  make([]uint16, wordsPerLine*height),
		viewers: make(map[*websocket.Conn]struct{}),
	}
}

// Bounds implements vm.Display.
func (b *DisplayBridge) Bounds() (int, int) { return b.width, b.height }

// SetPixels implements vm.Display, overwriting a rectangular region.
func (b *DisplayBridge) SetPixels(x, y, width, height int, words []uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	wordsPerLine := (b.width + 15) / 16
	srcWordsPerLine := (width + 15) / 16
	for row := 0; row < height; row++ {
		destRow := y + row
		if destRow < 0 || destRow >= b.height {
			continue
		}
		for w := 0; w < srcWordsPerLine; w++ {
			destIdx := destRow*wordsPerLine + x/16 + w
			srcIdx := row*srcWordsPerLine + w
			if destIdx >= 0 && destIdx < len(b.pixels) && srcIdx < len(words) {
				b.pixels[destIdx] = words[srcIdx]
			}
		}
	}
}

type dirtyRectMessage struct {
	Type   string `json:"type"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// MarkDirty implements vm.Display, broadcasting the changed region to
// every connected viewer as a JSON message over its websocket.
func (b *DisplayBridge) MarkDirty(x, y, width, height int) {
	msg := dirtyRectMessage{Type: "display_changed", X: x, Y: y, Width: width, Height: height}
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.viewers {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(b.viewers, conn)
		}
	}
}

// ServeHTTP upgrades an incoming request to a websocket and registers it
// as a viewer until the connection closes.
func (b *DisplayBridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.viewers[conn] = struct{}{}
	b.mu.Unlock()
}
