// Package renderer runs the two GPU passes of the ink simulation on raylib.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"
	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/inkflux/config"
	"github.com/pthm-cable/inkflux/glsl"
)

// ErrUniformMissing is returned when a compiled program lacks a required
// uniform. raylib falls back to its default shader on compile or link
// failure, so this is also how a broken shader surfaces.
var ErrUniformMissing = errors.New("uniform missing")

// Uniforms read by the simulation program.
var simulationUniforms = []string{
	"reference", "scatter", "size", "position", "amount",
	"decay", "time", "simulationSize", "windowSize",
}

// Uniforms read by the display program.
var displayUniforms = []string{
	"backgroundColorA", "backgroundColorB", "windowSize", "time",
}

// Program is a compiled shader with its uniform locations resolved.
type Program struct {
	Name   string
	Shader rl.Shader
	locs   map[string]int32
}

// Loc returns the location of a uniform resolved at load time, or -1.
func (p *Program) Loc(name string) int32 {
	if loc, ok := p.locs[name]; ok {
		return loc
	}
	return -1
}

// Unload frees the shader.
func (p *Program) Unload() {
	if p == nil || p.Shader.ID == 0 {
		return
	}
	rl.UnloadShader(p.Shader)
	p.Shader = rl.Shader{}
}

// Sources holds the raw GLSL text of the three shader files.
type Sources struct {
	Vertex     string
	Simulation string
	Display    string
}

// ReadSources reads the shader files concurrently.
func ReadSources(ctx context.Context, cfg config.ShadersConfig) (Sources, error) {
	var src Sources
	g, ctx := errgroup.WithContext(ctx)
	read := func(path string, dst *string) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading shader: %w", err)
			}
			*dst = string(data)
			return nil
		})
	}
	read(cfg.Vertex, &src.Vertex)
	read(cfg.Simulation, &src.Simulation)
	read(cfg.Display, &src.Display)
	if err := g.Wait(); err != nil {
		return Sources{}, err
	}
	return src, nil
}

// LoadProgram compiles vs and fs and resolves the named uniforms. Must be
// called on the raylib thread.
func LoadProgram(name, vs, fs string, uniforms []string) (*Program, error) {
	shader := rl.LoadShaderFromMemory(vs, fs)
	if shader.ID == 0 {
		return nil, fmt.Errorf("compiling %s program", name)
	}
	p := &Program{Name: name, Shader: shader, locs: make(map[string]int32, len(uniforms))}
	var missing []error
	for _, u := range uniforms {
		loc := rl.GetShaderLocation(shader, u)
		if loc < 0 {
			missing = append(missing, fmt.Errorf("%s: %w: %s", name, ErrUniformMissing, u))
			continue
		}
		p.locs[u] = loc
	}
	if len(missing) > 0 {
		rl.UnloadShader(shader)
		return nil, errors.Join(missing...)
	}
	return p, nil
}

// LoadPrograms compiles the simulation and display programs, sizing the
// simulation seed arrays for seeds slots.
func LoadPrograms(src Sources, seeds int) (simulation, display *Program, err error) {
	simSrc := glsl.Define(src.Simulation, "SEEDS", max(seeds, 1))
	simulation, err = LoadProgram("simulation", src.Vertex, simSrc, simulationUniforms)
	if err != nil {
		return nil, nil, err
	}
	display, err = LoadProgram("display", src.Vertex, src.Display, displayUniforms)
	if err != nil {
		simulation.Unload()
		return nil, nil, err
	}
	return simulation, display, nil
}
