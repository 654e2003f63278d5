package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"gonum.org/v1/gonum/spatial/r3"

	"terramesh.dev/internal/field"
	"terramesh.dev/internal/mesh"
	"terramesh.dev/internal/protocol"
	"terramesh.dev/internal/world"
)

// fakeProvider serves a canned mesh for chunk (0,0) and errors elsewhere.
type fakeProvider struct{}

func (fakeProvider) RebuildChunk(_ context.Context, pos world.ChunkPos) (mesh.Mesh, error) {
	if pos.CX != 0 || pos.CZ != 0 {
		return mesh.Mesh{}, fmt.Errorf("chunk %d,%d support: %w", pos.CX, pos.CZ, world.ErrNotLoaded)
	}
	return mesh.Mesh{
		Vertices: []mesh.Vertex{
			{Position: r3.Vec{X: 0.5, Y: 64, Z: 0.5}, Normal: r3.Vec{Y: 1}, Blend: field.Pure(3)},
			{Position: r3.Vec{X: 1.5, Y: 64, Z: 0.5}, Normal: r3.Vec{Y: 1}, Blend: field.Pure(3)},
			{Position: r3.Vec{X: 0.5, Y: 64, Z: 1.5}, Normal: r3.Vec{Y: 1}, Blend: field.Pure(3)},
		},
		Indices: []uint32{0, 1, 2},
	}, nil
}

func dialTestServer(t *testing.T) *websocket.Conn {
	t.Helper()
	logger := log.New(os.Stdout, "[ws-test] ", log.LstdFlags)
	srv := httptest.NewServer(NewServer(fakeProvider{}, logger).Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestSubscribeReturnsMesh(t *testing.T) {
	conn := dialTestServer(t)
	if err := conn.WriteJSON(protocol.SubscribeMsg{Type: protocol.TypeSubscribe}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var m protocol.MeshMsg
	if err := json.Unmarshal(readFrame(t, conn), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Type != protocol.TypeMesh || m.CX != 0 || m.CZ != 0 {
		t.Fatalf("bad frame: %+v", m)
	}
	if len(m.Positions) != 9 || len(m.Normals) != 9 || len(m.Blends) != 3 || len(m.Indices) != 3 {
		t.Fatalf("frame sizes: %d positions, %d normals, %d blends, %d indices",
			len(m.Positions), len(m.Normals), len(m.Blends), len(m.Indices))
	}
	if m.Blends[0].Materials[0] != 3 || m.Blends[0].Weights[0] != 1 {
		t.Fatalf("blend mangled: %+v", m.Blends[0])
	}
}

func TestSubscribeNotLoaded(t *testing.T) {
	conn := dialTestServer(t)
	if err := conn.WriteJSON(protocol.SubscribeMsg{Type: protocol.TypeSubscribe, CX: 5, CZ: 5}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var e protocol.ErrorMsg
	if err := json.Unmarshal(readFrame(t, conn), &e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Type != protocol.TypeError || e.Code != protocol.ErrNotLoaded {
		t.Fatalf("bad frame: %+v", e)
	}
	if e.CX != 5 || e.CZ != 5 {
		t.Fatalf("error frame lost the chunk position: %+v", e)
	}
}

func TestBadFrameRejected(t *testing.T) {
	conn := dialTestServer(t)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"HELLO"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	var e protocol.ErrorMsg
	if err := json.Unmarshal(readFrame(t, conn), &e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Code != protocol.ErrBadRequest {
		t.Fatalf("got code %s, want E_BAD_REQUEST", e.Code)
	}

	// The connection stays usable after a rejected frame.
	if err := conn.WriteJSON(protocol.SubscribeMsg{Type: protocol.TypeSubscribe}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var m protocol.MeshMsg
	if err := json.Unmarshal(readFrame(t, conn), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Type != protocol.TypeMesh {
		t.Fatalf("got %s after bad frame, want MESH", m.Type)
	}
}
