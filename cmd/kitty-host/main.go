// Command kitty-host is a minimal terminal host that demonstrates wiring
// the kittygfx core to a real PTY and a real screen: it spawns a shell
// under github.com/creack/pty, scans its output for kitty graphics APC
// sequences, dispatches them against a kittygfx.Store, and renders the
// resulting placements as averaged-color blocks on a tcell screen. It is
// not a general terminal emulator; non-graphics output is not interpreted.
package main

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"github.com/gdamore/tcell/v2"

	"github.com/texelation/kittygfx/config"
	"github.com/texelation/kittygfx/kittygfx"
)

const (
	esc = 0x1b
	bel = 0x07
)

func main() {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	if len(os.Args) > 1 {
		shell = os.Args[1]
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("kitty-host: tcell.NewScreen: %v", err)
	}
	if err := screen.Init(); err != nil {
		log.Fatalf("kitty-host: screen.Init: %v", err)
	}
	defer screen.Fini()
	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorReset).Foreground(tcell.ColorReset))
	screen.HideCursor()

	cols, rows := screen.Size()
	cellW, cellH := 10, 20 // assumed terminal cell pixel size; no portable way to query it

	surf := newCellSurface(cellW, cellH)
	host := &hostState{screen: screen, surf: surf}

	cfg := config.Default()
	store := kittygfx.NewStore(cfg, surf, nil)
	defer store.Shutdown()

	cmd := exec.Command(shell)
	cmd.Env = append(os.Environ(), "TERM=xterm-kitty")
	ptyFile, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		log.Fatalf("kitty-host: pty.StartWithSize: %v", err)
	}
	defer ptyFile.Close()

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	go func() {
		for range winch {
			c, r := screen.Size()
			pty.Setsize(ptyFile, &pty.Winsize{Rows: uint16(r), Cols: uint16(c)})
		}
	}()

	redraw := make(chan struct{}, 1)
	go pumpGraphics(ptyFile, store, redraw)

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			events <- screen.PollEvent()
		}
	}()

	for {
		select {
		case ev := <-events:
			switch e := ev.(type) {
			case *tcell.EventKey:
				if e.Key() == tcell.KeyCtrlC {
					return
				}
				ptyFile.Write([]byte(string(e.Rune())))
			case *tcell.EventResize:
				screen.Sync()
			}
		case <-redraw:
			host.render(store)
		}
	}
}

// pumpGraphics reads the PTY, extracts APC-wrapped graphics commands
// (ESC _ G ... ST, ST being ESC \ or BEL), dispatches each one, and writes
// any non-empty response back to the PTY wrapped in the same envelope.
func pumpGraphics(r *os.File, store *kittygfx.Store, redraw chan<- struct{}) {
	buf := make([]byte, 65536)
	var apc []byte
	inAPC := false
	var prev byte

	for {
		n, err := r.Read(buf)
		for i := 0; i < n; i++ {
			b := buf[i]
			switch {
			case !inAPC && prev == esc && b == '_':
				inAPC = true
				apc = apc[:0]
			case inAPC && b == bel:
				dispatchAPC(store, apc, r)
				inAPC = false
				select {
				case redraw <- struct{}{}:
				default:
				}
			case inAPC && prev == esc && b == '\\':
				dispatchAPC(store, apc[:len(apc)-1], r)
				inAPC = false
				select {
				case redraw <- struct{}{}:
				default:
				}
			case inAPC:
				apc = append(apc, b)
			}
			prev = b
		}
		if err != nil {
			return
		}
	}
}

func dispatchAPC(store *kittygfx.Store, body []byte, w *os.File) {
	if len(body) == 0 || body[0] != 'G' {
		return
	}
	cmd := kittygfx.ParseCommand(body)
	resp := store.Dispatch(cmd)
	if resp == "" {
		return
	}
	fmt.Fprintf(w, "\x1b_%s\x1b\\", resp)
}

type hostState struct {
	mu     sync.Mutex
	screen tcell.Screen
	surf   *cellSurface
}

func (h *hostState) render(store *kittygfx.Store) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cols, rows := h.screen.Size()
	store.StartDrawing(0, h.surf.cellW, h.surf.cellH)
	for _, img := range store.Images() {
		for _, p := range img.Placements {
			if p.Rows <= 0 || p.Cols <= 0 {
				continue
			}
			r := &kittygfx.ImageRect{
				ImageID:     img.ID,
				PlacementID: p.ID,
				StartCol:    0, EndCol: p.Cols - 1,
				StartRow: 0, EndRow: p.Rows - 1,
				CellW: h.surf.cellW, CellH: h.surf.cellH,
			}
			store.AppendImageRect(r, nil)
		}
	}
	store.FinishDrawing(nil)

	for col := 0; col < cols; col++ {
		for row := 0; row < rows; row++ {
			if c, ok := h.surf.cellColor(col, row); ok {
				h.screen.SetContent(col, row, ' ', nil, tcell.StyleDefault.Background(c))
			}
		}
	}
	h.screen.Show()
}
