package app

import rl "github.com/gen2brain/raylib-go/raylib"

// handleInput processes keyboard input.
func (a *App) handleInput() {
	a.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		a.paused = !a.paused
	}
	if rl.IsKeyPressed(rl.KeyT) {
		a.tuning.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyP) {
		a.showPerf = !a.showPerf
	}
	if rl.IsKeyPressed(rl.KeyH) {
		a.showHUD = !a.showHUD
	}
	if rl.IsKeyPressed(rl.KeyR) {
		a.driver.RandomizePalette()
	}
}

// handleResize forwards a new window size to the pipeline and the panels.
func (a *App) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w, h := rl.GetScreenWidth(), rl.GetScreenHeight()
	if w == a.width && h == a.height {
		return
	}
	a.width, a.height = w, h
	a.pipeline.Resize(w, h)
	a.tuning.SetPosition(int32(w)-290, 10)
}
