// Command volinfo prints the header and intensity statistics of volume
// containers and isosurface meshes, for checking files before rendering.
package main

import (
	"fmt"
	"math"
	"os"

	"volrender/internal/mesh"
	"volrender/internal/volume"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: volinfo <file.vol|file.stl> ...")
		os.Exit(1)
	}

	exit := 0
	for _, path := range os.Args[1:] {
		var err error
		if volume.IsRawFile(path) {
			err = inspectVolume(path)
		} else {
			err = inspectMesh(path)
		}
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			exit = 1
		}
	}
	os.Exit(exit)
}

func inspectVolume(path string) error {
	v, err := volume.ReadFile(path)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", path)
	fmt.Printf("  Dims: %d x %d x %d (%d voxels, %s)\n",
		v.Dims.X, v.Dims.Y, v.Dims.Z, v.Dims.Count(), v.DataType)
	fmt.Printf("  Spacing: %.3f x %.3f x %.3f mm\n", v.Spacing.X, v.Spacing.Y, v.Spacing.Z)
	if v.Window.Window > 0 {
		fmt.Printf("  Window: %.3f centered at %.3f\n", v.Window.Window, v.Window.Level)
	} else {
		fmt.Printf("  Window: none (full range)\n")
	}

	data := v.Normalize()
	lo, hi := math.Inf(1), math.Inf(-1)
	sum := 0.0
	for _, s := range data {
		f := float64(s)
		if f < lo {
			lo = f
		}
		if f > hi {
			hi = f
		}
		sum += f
	}
	fmt.Printf("  Intensity: [%.4f, %.4f], mean %.4f\n", lo, hi, sum/float64(len(data)))

	auto := volume.AutoWindowLevel(data)
	fmt.Printf("  Suggested window: %.3f centered at %.3f\n", auto.Window, auto.Level)
	return nil
}

func inspectMesh(path string) error {
	m, err := mesh.LoadSTL(path)
	if err != nil {
		return err
	}

	var lo, hi [3]float32
	for k := 0; k < 3; k++ {
		lo[k] = float32(math.Inf(1))
		hi[k] = float32(math.Inf(-1))
	}
	for i := 0; i < len(m.Positions); i += 3 {
		for k := 0; k < 3; k++ {
			v := m.Positions[i+k]
			if v < lo[k] {
				lo[k] = v
			}
			if v > hi[k] {
				hi[k] = v
			}
		}
	}

	fmt.Printf("%s\n", path)
	fmt.Printf("  Vertices: %d, Triangles: %d\n", m.VertexCount(), m.TriangleCount())
	fmt.Printf("  BBox: X[%.2f, %.2f] Y[%.2f, %.2f] Z[%.2f, %.2f]\n",
		lo[0], hi[0], lo[1], hi[1], lo[2], hi[2])
	fmt.Printf("  Size: %.2f x %.2f x %.2f\n", hi[0]-lo[0], hi[1]-lo[1], hi[2]-lo[2])
	return nil
}
