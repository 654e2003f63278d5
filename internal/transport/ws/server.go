// Package ws serves chunk meshes over a websocket. A client subscribes to
// chunk positions and receives one MESH frame per successful rebuild; failures
// come back as ERROR frames on the same connection.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"terramesh.dev/internal/field"
	"terramesh.dev/internal/mesh"
	"terramesh.dev/internal/protocol"
	"terramesh.dev/internal/world"
)

// MeshProvider rebuilds (or serves from cache) the mesh of one chunk.
// pipeline.Builder satisfies it.
type MeshProvider interface {
	RebuildChunk(ctx context.Context, pos world.ChunkPos) (mesh.Mesh, error)
}

type Server struct {
	meshes MeshProvider
	log    *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(meshes MeshProvider, logger *log.Logger) *Server {
	return &Server{
		meshes: meshes,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan []byte, 16)

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop. Rebuilds run inline so one connection processes its
		// subscriptions in order.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				return
			}

			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeSubscribe {
				s.send(ctx, out, protocol.ErrorMsg{
					Type:    protocol.TypeError,
					Code:    protocol.ErrBadRequest,
					Message: "expected SUBSCRIBE",
				})
				continue
			}
			var sub protocol.SubscribeMsg
			if err := json.Unmarshal(msg, &sub); err != nil {
				s.send(ctx, out, protocol.ErrorMsg{
					Type:    protocol.TypeError,
					Code:    protocol.ErrBadRequest,
					Message: "malformed SUBSCRIBE",
				})
				continue
			}

			pos := world.ChunkPos{CX: sub.CX, CZ: sub.CZ}
			m, err := s.meshes.RebuildChunk(ctx, pos)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.send(ctx, out, errorFrame(pos, err))
				continue
			}
			s.send(ctx, out, EncodeMesh(pos, &m))
		}
	}
}

func (s *Server) send(ctx context.Context, out chan []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Printf("marshal frame: %v", err)
		return
	}
	select {
	case out <- b:
	case <-ctx.Done():
	}
}

func errorFrame(pos world.ChunkPos, err error) protocol.ErrorMsg {
	code := protocol.ErrInternal
	if errors.Is(err, field.ErrUnavailable) || errors.Is(err, world.ErrNotLoaded) {
		code = protocol.ErrNotLoaded
	}
	return protocol.ErrorMsg{
		Type:    protocol.TypeError,
		Code:    code,
		Message: err.Error(),
		CX:      pos.CX,
		CZ:      pos.CZ,
	}
}

// EncodeMesh flattens a mesh into its wire form, reducing each vertex blend
// to its four dominant materials.
func EncodeMesh(pos world.ChunkPos, m *mesh.Mesh) protocol.MeshMsg {
	msg := protocol.MeshMsg{
		Type:      protocol.TypeMesh,
		CX:        pos.CX,
		CZ:        pos.CZ,
		Positions: make([]float32, 0, len(m.Vertices)*3),
		Normals:   make([]float32, 0, len(m.Vertices)*3),
		Blends:    make([]protocol.VertexBlend, 0, len(m.Vertices)),
		Indices:   m.Indices,
	}
	if msg.Indices == nil {
		msg.Indices = []uint32{}
	}
	for _, v := range m.Vertices {
		msg.Positions = append(msg.Positions,
			float32(v.Position.X), float32(v.Position.Y), float32(v.Position.Z))
		msg.Normals = append(msg.Normals,
			float32(v.Normal.X), float32(v.Normal.Y), float32(v.Normal.Z))
		weights, materials := v.Blend.Dominant()
		msg.Blends = append(msg.Blends, protocol.VertexBlend{Weights: weights, Materials: materials})
	}
	return msg
}
