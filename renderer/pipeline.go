package renderer

import (
	"context"
	"fmt"
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/inkflux/config"
	"github.com/pthm-cable/inkflux/resource"
	"github.com/pthm-cable/inkflux/sim"
	"github.com/pthm-cable/inkflux/surface"
)

const referenceKey = "reference"

// Pipeline owns the simulation buffers, both programs and the reference
// texture, and draws one frame per Step. All methods run on the raylib thread.
type Pipeline struct {
	env        *sim.Environment
	simulation *Program
	display    *Program

	targets  *Targets
	seq      *surface.Sequencer[rl.RenderTexture2D]
	textures *TextureCache
	uniforms sim.SeedUniforms

	requested string // reference source last passed to the cache
	reference rl.Texture2D
	swaps     int

	window   surface.Size
	time     float32
	timeStep float32
	decay    float32
}

// NewPipeline reads and compiles the shaders and loads the reference texture
// named by env, falling back to the built-in gradient when it cannot be loaded.
func NewPipeline(ctx context.Context, cfg *config.Config, env *sim.Environment, width, height int) (*Pipeline, error) {
	src, err := ReadSources(ctx, cfg.Shaders)
	if err != nil {
		return nil, err
	}
	simulation, display, err := LoadPrograms(src, env.Seeds())
	if err != nil {
		return nil, err
	}

	targets := &Targets{}
	pair := surface.NewPair[rl.RenderTexture2D](targets, surface.Scaled(width, height, cfg.Simulation.Scale))
	p := &Pipeline{
		env:        env,
		simulation: simulation,
		display:    display,
		targets:    targets,
		seq:        surface.NewSequencer(pair, cfg.Simulation.Scale),
		textures:   resource.NewCache[*resource.Pixels, rl.Texture2D](ctx, NewTextureLoader(cfg.Textures)),
		uniforms:   sim.NewSeedUniforms(max(env.Seeds(), 1)),
		window:     surface.Size{W: int32(width), H: int32(height)},
		timeStep:   float32(cfg.Simulation.TimeStep),
	}

	if env.TextureURL() == "" {
		env.SetTextureURL(cfg.Textures.Reference)
	}
	if err := p.loadReference(ctx, env.TextureURL()); err != nil {
		if env.TextureURL() == resource.GradientSource {
			p.Unload()
			return nil, err
		}
		slog.Warn("reference texture unavailable, using gradient", "source", env.TextureURL(), "error", err)
		env.SetTextureURL(resource.GradientSource)
		if err := p.loadReference(ctx, resource.GradientSource); err != nil {
			p.Unload()
			return nil, err
		}
	}
	return p, nil
}

func (p *Pipeline) loadReference(ctx context.Context, source string) error {
	if err := p.textures.LoadAll(ctx, map[string]string{referenceKey: source}); err != nil {
		return fmt.Errorf("loading reference texture: %w", err)
	}
	p.requested = source
	p.reference, _ = p.textures.Get(referenceKey)
	return nil
}

// Poll applies finished reference texture loads.
func (p *Pipeline) Poll() int {
	n := p.textures.Poll()
	p.swaps += n
	return n
}

// Resize records a new window size. The buffers are recreated on the next Step.
func (p *Pipeline) Resize(width, height int) {
	p.window = surface.Size{W: int32(width), H: int32(height)}
	p.seq.Resize(width, height)
}

// Advance toggles the mode for a new frame, applying any pending resize, and
// returns the mode to pass to Simulate and Render.
func (p *Pipeline) Advance() bool {
	return p.seq.Advance()
}

// Step advances and runs both passes. Call between BeginDrawing and EndDrawing.
func (p *Pipeline) Step() {
	p.seq.Step(p)
}

// Simulate writes the next ink state into the back buffer for mode.
func (p *Pipeline) Simulate(mode bool) {
	p.syncReference()

	pair := p.seq.Pair()
	front := pair.Front(mode)
	back := pair.Back(mode)
	size := pair.Size()

	p.uniforms.Pack(p.env.Emit())
	p.decay = p.env.Decay()

	prog := p.simulation
	sh := prog.Shader
	n := int32(p.uniforms.Len())

	rl.BeginTextureMode(back)
	rl.ClearBackground(rl.Blank)
	rl.BeginBlendMode(rl.BlendAlphaPremultiply)
	rl.BeginShaderMode(sh)

	rl.SetShaderValueV(sh, prog.Loc("scatter"), p.uniforms.Scatter, rl.ShaderUniformFloat, n)
	rl.SetShaderValueV(sh, prog.Loc("size"), p.uniforms.Size, rl.ShaderUniformFloat, n)
	rl.SetShaderValueV(sh, prog.Loc("amount"), p.uniforms.Amount, rl.ShaderUniformFloat, n)
	rl.SetShaderValueV(sh, prog.Loc("position"), p.uniforms.Position, rl.ShaderUniformVec2, n)
	rl.SetShaderValue(sh, prog.Loc("decay"), []float32{p.decay}, rl.ShaderUniformFloat)
	rl.SetShaderValue(sh, prog.Loc("time"), []float32{p.time}, rl.ShaderUniformFloat)
	rl.SetShaderValue(sh, prog.Loc("simulationSize"), []float32{float32(size.W), float32(size.H)}, rl.ShaderUniformVec2)
	rl.SetShaderValue(sh, prog.Loc("windowSize"), []float32{float32(p.window.W), float32(p.window.H)}, rl.ShaderUniformVec2)
	rl.SetShaderValueTexture(sh, prog.Loc("reference"), p.reference)

	// Render textures are stored upside down; the negative height keeps the
	// front buffer aligned with gl_FragCoord in the back buffer.
	src := rl.Rectangle{Width: float32(front.Texture.Width), Height: -float32(front.Texture.Height)}
	rl.DrawTextureRec(front.Texture, src, rl.Vector2{}, rl.White)

	rl.EndShaderMode()
	rl.EndBlendMode()
	rl.EndTextureMode()

	p.time += p.timeStep
}

// syncReference requests a reload when the environment names a new texture.
// Until it lands the previous texture stays bound.
func (p *Pipeline) syncReference() {
	if url := p.env.TextureURL(); url != "" && url != p.requested {
		p.requested = url
		p.textures.Fetch(referenceKey, url)
	}
	if tex, ok := p.textures.Get(referenceKey); ok {
		p.reference = tex
	}
}

// Render draws the buffer written by this frame's Simulate over the background.
// A resize pending while paused is applied here, so the cleared target is
// drawn instead of the stale one.
func (p *Pipeline) Render(mode bool) {
	p.seq.Settle()
	back := p.seq.Pair().Back(mode)
	prog := p.display
	sh := prog.Shader

	rl.BeginShaderMode(sh)
	rl.SetShaderValue(sh, prog.Loc("backgroundColorA"), p.env.BackgroundA().Vec4(), rl.ShaderUniformVec4)
	rl.SetShaderValue(sh, prog.Loc("backgroundColorB"), p.env.BackgroundB().Vec4(), rl.ShaderUniformVec4)
	rl.SetShaderValue(sh, prog.Loc("windowSize"), []float32{float32(p.window.W), float32(p.window.H)}, rl.ShaderUniformVec2)
	rl.SetShaderValue(sh, prog.Loc("time"), []float32{p.time}, rl.ShaderUniformFloat)

	src := rl.Rectangle{Width: float32(back.Texture.Width), Height: -float32(back.Texture.Height)}
	dst := rl.Rectangle{Width: float32(p.window.W), Height: float32(p.window.H)}
	rl.DrawTexturePro(back.Texture, src, dst, rl.Vector2{}, 0, rl.White)
	rl.EndShaderMode()
}

// Output returns the buffer written by the most recent frame.
func (p *Pipeline) Output() rl.RenderTexture2D {
	return p.seq.Pair().Back(p.seq.Mode())
}

// Mode returns the mode of the most recent frame.
func (p *Pipeline) Mode() bool { return p.seq.Mode() }

// Frames returns the number of frames stepped.
func (p *Pipeline) Frames() int { return p.seq.Frames() }

// LastDecay returns the decay uploaded by the most recent Simulate.
func (p *Pipeline) LastDecay() float32 { return p.decay }

// TextureSwaps returns how many reference textures were applied after startup.
func (p *Pipeline) TextureSwaps() int { return p.swaps }

// CacheStats returns reference texture cache counters.
func (p *Pipeline) CacheStats() resource.CacheStats { return p.textures.Stats() }

// TargetsAllocated returns how many simulation buffers have been created.
func (p *Pipeline) TargetsAllocated() int { return p.targets.Allocated() }

// Unload frees every GPU resource and cancels pending texture loads.
func (p *Pipeline) Unload() {
	p.textures.Close()
	p.seq.Pair().Release()
	p.simulation.Unload()
	p.display.Unload()
}
