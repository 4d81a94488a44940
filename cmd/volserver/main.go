// Command volserver streams rendered frames over WebSocket. Each client
// gets a private software renderer; control messages arrive as JSON and
// frames go back as binary WebP messages.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/HugoSmits86/nativewebp"
	"github.com/gorilla/websocket"

	"volrender/internal/camera"
	"volrender/internal/config"
	"volrender/internal/gpu/softgpu"
	"volrender/internal/quality"
	"volrender/internal/render"
	"volrender/internal/store"
	"volrender/internal/transfer"
	"volrender/internal/volume"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // viewer pages are served from anywhere during development
	},
}

type server struct {
	volumeDir string
	width     int
	height    int
	store     *store.Store
}

// controlMessage is the client-to-server protocol. Type selects the
// operation; the remaining fields are read per type.
type controlMessage struct {
	Type string `json:"type"`

	Volume string `json:"volume,omitempty"`

	Mode    string `json:"mode,omitempty"`
	Quality string `json:"quality,omitempty"`
	Preset  string `json:"preset,omitempty"`

	Yaw    float64 `json:"yaw,omitempty"`
	Pitch  float64 `json:"pitch,omitempty"`
	Factor float64 `json:"factor,omitempty"`
	FOV    float64 `json:"fov,omitempty"`

	Window float64 `json:"window,omitempty"`
	Level  float64 `json:"level,omitempty"`

	Plane  string  `json:"plane,omitempty"`
	Offset float64 `json:"offset,omitempty"`

	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	LowBandwidth bool `json:"lowBandwidth,omitempty"`
	PowerSave    bool `json:"powerSave,omitempty"`
	Mobile       bool `json:"mobile,omitempty"`
}

type statusMessage struct {
	Type    string   `json:"type"`
	State   string   `json:"state,omitempty"`
	Error   string   `json:"error,omitempty"`
	Volumes []string `json:"volumes,omitempty"`
}

func main() {
	configFile := flag.String("config", "", "Path to config.yaml file")
	addr := flag.String("addr", "", "Listen address (default :8080)")
	dataDir := flag.String("data", "", "Directory of volume files")
	width := flag.Int("width", 0, "Frame width (default: 512)")
	height := flag.Int("height", 0, "Frame height (default: width)")
	flag.Parse()

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.Resolve(config.Flags{
		VolumeDir: *dataDir,
		Width:     *width,
		Height:    *height,
	})
	if *addr != "" {
		cfg.ServerAddr = *addr
	}

	s := &server{
		volumeDir: cfg.VolumeDir,
		width:     cfg.Width,
		height:    cfg.Height,
		store:     store.New(),
	}

	http.HandleFunc("/ws", s.handleWebSocket)

	fmt.Printf("volserver listening on %s (volumes: %s)\n", cfg.ServerAddr, s.volumeDir)
	log.Fatal(http.ListenAndServe(cfg.ServerAddr, nil))
}

func (s *server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	rend, err := render.New(softgpu.New(), render.Options{
		Width:  s.width,
		Height: s.height,
	})
	if err != nil {
		log.Println("renderer init:", err)
		return
	}
	defer rend.Dispose()

	// Serializes frame writes against status writes.
	var writeMu sync.Mutex

	sendStatus := func(m statusMessage) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(m); err != nil {
			log.Println("WebSocket write error:", err)
		}
	}

	sendStatus(statusMessage{Type: "volumes", Volumes: s.listVolumes()})

	for {
		var msg controlMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Println("WebSocket read error:", err)
			}
			return
		}

		if err := s.apply(rend, msg); err != nil {
			sendStatus(statusMessage{Type: "error", Error: err.Error()})
			continue
		}

		if err := rend.Render(); err != nil {
			sendStatus(statusMessage{Type: "error", Error: err.Error()})
			continue
		}

		frame := rend.Frame()
		if frame == nil {
			continue
		}

		var buf bytes.Buffer
		if err := nativewebp.Encode(&buf, frame, nil); err != nil {
			sendStatus(statusMessage{Type: "error", Error: err.Error()})
			continue
		}

		writeMu.Lock()
		err = conn.WriteMessage(websocket.BinaryMessage, buf.Bytes())
		writeMu.Unlock()
		if err != nil {
			log.Println("WebSocket write error:", err)
			return
		}
	}
}

// apply dispatches one control message onto the session's renderer.
func (s *server) apply(r *render.Renderer, msg controlMessage) error {
	switch msg.Type {
	case "load":
		name := filepath.Base(msg.Volume) // no path escapes
		vol, err := s.store.Load(filepath.Join(s.volumeDir, name))
		if err != nil {
			return err
		}
		return r.LoadVolume(vol)

	case "mode":
		m, err := render.ParseMode(msg.Mode)
		if err != nil {
			return err
		}
		r.SetMode(m)
		return nil

	case "orbit":
		r.OrbitCamera(msg.Yaw, msg.Pitch)
		return nil

	case "dolly":
		r.DollyCamera(msg.Factor)
		return nil

	case "camera":
		var d camera.Delta
		if msg.FOV > 0 {
			d.FOV = &msg.FOV
		}
		r.UpdateCamera(d)
		return nil

	case "quality":
		l, err := quality.ParseLevel(msg.Quality)
		if err != nil {
			return err
		}
		r.SetQualityLevel(l)
		return nil

	case "environment":
		r.SetEnvironment(quality.Signals{
			LowBandwidth: msg.LowBandwidth,
			PowerSave:    msg.PowerSave,
			MobileDevice: msg.Mobile,
		})
		return nil

	case "transfer":
		tf, err := transfer.Preset(msg.Preset)
		if err != nil {
			return err
		}
		return r.SetTransferFunction(tf)

	case "window":
		r.SetWindowLevel(volume.WindowLevel{Window: msg.Window, Level: msg.Level})
		return nil

	case "plane":
		p, err := render.ParsePlane(msg.Plane, msg.Offset)
		if err != nil {
			return err
		}
		r.SetMPRPlane(p)
		return nil

	case "resize":
		r.Resize(msg.Width, msg.Height)
		return nil

	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

func (s *server) listVolumes() []string {
	entries, err := os.ReadDir(s.volumeDir)
	if err != nil {
		log.Println("volume dir:", err)
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && volume.IsRawFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}
