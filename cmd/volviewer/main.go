// Command volviewer is an interactive OpenGL viewer for volume files.
//
// Drag to orbit, scroll to dolly, keys 1-4 switch rendering modes,
// [ and ] slide the MPR plane, L cycles quality tiers, C cycles
// colormap presets, S saves a screenshot.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	"volrender/internal/export"
	"volrender/internal/gpu/glgpu"
	"volrender/internal/quality"
	"volrender/internal/render"
	"volrender/internal/transfer"
	"volrender/internal/volume"
)

func init() {
	// GLFW event handling must run on the main OS thread.
	runtime.LockOSThread()
}

const orbitSensitivity = 0.01

var presetNames = []string{"grayscale", "ct-bone", "hot-metal"}

type viewer struct {
	rend *render.Renderer

	dragging     bool
	lastX, lastY float64

	planeOffset float64
	plane       string
	level       quality.Level
	preset      int
}

func main() {
	volumeFile := flag.String("volume", "", "Volume file to view")
	width := flag.Int("width", 800, "Window width")
	height := flag.Int("height", 800, "Window height")
	qualityFlag := flag.String("quality", "high", "Quality tier: low, medium, high")
	flag.Parse()

	if *volumeFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: volviewer -volume file.vol")
		os.Exit(1)
	}
	level, err := quality.ParseLevel(*qualityFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	vol, err := volume.ReadFile(*volumeFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	if err := glfw.Init(); err != nil {
		log.Fatal("glfw init:", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(*width, *height, "volviewer", nil, nil)
	if err != nil {
		log.Fatal("glfw window:", err)
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(1)

	fbW, fbH := window.GetFramebufferSize()
	rend, err := render.New(glgpu.New(), render.Options{
		Width:   fbW,
		Height:  fbH,
		Quality: level,
	})
	if err != nil {
		log.Fatal("renderer:", err)
	}
	defer rend.Dispose()

	if err := rend.LoadVolume(vol); err != nil {
		log.Fatal("load volume:", err)
	}

	v := &viewer{
		rend:        rend,
		planeOffset: 0.5,
		plane:       "axial",
		level:       level,
	}
	v.installCallbacks(window)

	for !window.ShouldClose() {
		glfw.PollEvents()
		if err := rend.Render(); err != nil {
			log.Println("render:", err)
		}
		window.SwapBuffers()
	}
}

func (v *viewer) installCallbacks(window *glfw.Window) {
	window.SetMouseButtonCallback(func(w *glfw.Window, b glfw.MouseButton, a glfw.Action, _ glfw.ModifierKey) {
		if b != glfw.MouseButtonLeft {
			return
		}
		v.dragging = a == glfw.Press
		v.lastX, v.lastY = w.GetCursorPos()
	})

	window.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		if !v.dragging {
			return
		}
		v.rend.OrbitCamera((x-v.lastX)*orbitSensitivity, (y-v.lastY)*orbitSensitivity)
		v.lastX, v.lastY = x, y
	})

	window.SetScrollCallback(func(_ *glfw.Window, _, dy float64) {
		if dy > 0 {
			v.rend.DollyCamera(0.9)
		} else if dy < 0 {
			v.rend.DollyCamera(1.1)
		}
	})

	window.SetFramebufferSizeCallback(func(_ *glfw.Window, w, h int) {
		v.rend.Resize(w, h)
	})

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.Key1:
			v.rend.SetMode(render.ModeVolume)
		case glfw.Key2:
			v.rend.SetMode(render.ModeMIP)
		case glfw.Key3:
			v.rend.SetMode(render.ModeSurface)
		case glfw.Key4:
			v.rend.SetMode(render.ModeMPR)
		case glfw.KeyLeftBracket:
			v.slidePlane(-0.02)
		case glfw.KeyRightBracket:
			v.slidePlane(0.02)
		case glfw.KeyA:
			v.setPlane("axial")
		case glfw.KeyG: // sagittal; S is taken by screenshot
			v.setPlane("sagittal")
		case glfw.KeyO:
			v.setPlane("coronal")
		case glfw.KeyL:
			v.cycleQuality()
		case glfw.KeyC:
			v.cyclePreset()
		case glfw.KeyS:
			v.screenshot()
		}
	})
}

func (v *viewer) slidePlane(delta float64) {
	v.planeOffset += delta
	if v.planeOffset < 0 {
		v.planeOffset = 0
	}
	if v.planeOffset > 1 {
		v.planeOffset = 1
	}
	v.setPlane(v.plane)
}

func (v *viewer) setPlane(name string) {
	v.plane = name
	p, err := render.ParsePlane(name, v.planeOffset)
	if err != nil {
		return
	}
	v.rend.SetMPRPlane(p)
}

func (v *viewer) cycleQuality() {
	switch v.level {
	case quality.High:
		v.level = quality.Medium
	case quality.Medium:
		v.level = quality.Low
	default:
		v.level = quality.High
	}
	v.rend.SetQualityLevel(v.level)
	log.Println("quality:", v.level)
}

func (v *viewer) cyclePreset() {
	v.preset = (v.preset + 1) % len(presetNames)
	tf, err := transfer.Preset(presetNames[v.preset])
	if err != nil {
		log.Println("preset:", err)
		return
	}
	if err := v.rend.SetTransferFunction(tf); err != nil {
		log.Println("preset:", err)
	}
	log.Println("colormap:", presetNames[v.preset])
}

func (v *viewer) screenshot() {
	frame := v.rend.Frame()
	if frame == nil {
		return
	}
	name := fmt.Sprintf("volviewer-%s.webp", time.Now().Format("20060102-150405"))
	if err := export.WriteWebP(name, frame); err != nil {
		log.Println("screenshot:", err)
		return
	}
	log.Println("saved", name)
}
