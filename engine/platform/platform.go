package platform

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/lumen/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type Platform struct {
	Window *glfw.Window

	// Invoked from the glfw framebuffer-size callback with the new extent.
	OnResize func(width, height uint32)
	// Invoked on key press with the glfw key code.
	OnKey func(key glfw.Key)
}

func New() (*Platform, error) {
	return &Platform{
		Window: nil,
	}, nil
}

func (p *Platform) Startup(applicationName string, width, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}

	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		return err
	}
	p.Window = window

	p.Window.SetFramebufferSizeCallback(func(w *glfw.Window, newWidth, newHeight int) {
		if p.OnResize != nil && newWidth > 0 && newHeight > 0 {
			p.OnResize(uint32(newWidth), uint32(newHeight))
		}
	})

	p.Window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if p.OnKey != nil && action == glfw.Press {
			p.OnKey(key)
		}
	})

	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages processes pending window events.
func (p *Platform) PumpMessages() {
	glfw.PollEvents()
}

// ShouldClose reports whether the window close flag is set.
func (p *Platform) ShouldClose() bool {
	return p.Window != nil && p.Window.ShouldClose()
}

// GetRequiredExtensionNames returns the instance extensions the windowing
// system needs for surface creation.
func (p *Platform) GetRequiredExtensionNames() []string {
	if p.Window == nil {
		return nil
	}
	return p.Window.GetRequiredInstanceExtensions()
}

// GetAbsoluteTime returns the glfw time in seconds since init.
func GetAbsoluteTime() float64 {
	return glfw.GetTime()
}
