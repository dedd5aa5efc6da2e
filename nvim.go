package sbpatch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/neovim/go-client/nvim"
)

// NvimHost drives a Neovim instance as a document host: documents are
// file paths, the snapshot is the buffer content, the structured
// bridge is the buffer-line RPC API and the slow path feeds normal
// mode keystrokes. Buffers expose no stable line identifiers, so
// snapshots carry empty IDs and id lookups always miss.
//
// It implements SnapshotProvider, SlowInput and FastCapable.
type NvimHost struct {
	v             *nvim.Nvim
	isSelfStarted bool
	cmd           *exec.Cmd
	socketPath    string

	// selecting tracks a live SelectContent; visual is whether Neovim
	// is actually in visual mode (an empty line selects nothing).
	selecting bool
	visual    bool

	// Normal mode keeps the cursor on a character; beforeCursor tracks
	// whether the insertion point sits before that character, so a line
	// break opens on the correct side of it.
	beforeCursor bool

	// send overrides keystroke delivery; nil routes through the RPC
	// connection.
	send func(keys string) error
}

// NewNvimHost attaches to the instance named by NVIM_LISTEN_ADDRESS,
// or starts a headless one of its own.
func NewNvimHost() (*NvimHost, error) {
	if addr := os.Getenv("NVIM_LISTEN_ADDRESS"); addr != "" {
		v, err := nvim.Dial(addr)
		if err == nil {
			return &NvimHost{v: v}, nil
		}
	}

	tmpDir, err := os.MkdirTemp("", "sbpatch-nvim-")
	if err != nil {
		return nil, err
	}
	socketPath := filepath.Join(tmpDir, "nvim.sock")

	cmd := exec.Command("nvim", "--headless", "--clean", "--listen", socketPath)
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	for i := 0; i < 20; i++ {
		if _, err := os.Stat(socketPath); err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	v, err := nvim.Dial(socketPath)
	if err != nil {
		cmd.Process.Kill()
		return nil, err
	}

	h := &NvimHost{v: v, isSelfStarted: true, cmd: cmd, socketPath: socketPath}
	h.configureTempInstance()
	return h, nil
}

func (h *NvimHost) configureTempInstance() {
	b := h.v.NewBatch()
	b.Command("set noswapfile")
	b.Command("set hidden")
	b.Execute()
}

func (h *NvimHost) Close() error {
	if h.v != nil {
		h.v.Close()
	}
	if h.isSelfStarted && h.cmd != nil && h.cmd.Process != nil {
		h.cmd.Process.Kill()
		h.cmd.Wait()
		os.RemoveAll(filepath.Dir(h.socketPath))
	}
	return nil
}

// Snapshot opens (or re-reads) the file's buffer and returns its
// lines. The buffer's change tick is the revision marker.
func (h *NvimHost) Snapshot(ctx context.Context, doc string) ([]Line, Revision, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	absPath, err := filepath.Abs(doc)
	if err != nil {
		return nil, "", err
	}
	if err := h.v.Command(fmt.Sprintf("edit %s", absPath)); err != nil {
		return nil, "", fmt.Errorf("edit %s: %w", absPath, err)
	}

	raw, err := h.v.BufferLines(0, 0, -1, true)
	if err != nil {
		return nil, "", err
	}

	var tick int64
	if err := h.v.BufferVar(0, "changedtick", &tick); err != nil {
		return nil, "", err
	}

	lines := make([]Line, len(raw))
	for i, b := range raw {
		lines[i] = Line{Text: string(b)}
	}
	return lines, Revision(strconv.FormatInt(tick, 10)), nil
}

// Fast exposes the buffer-line RPC bridge.
func (h *NvimHost) Fast() (FastMutator, bool) {
	return &nvimFast{h: h}, true
}

type nvimFast struct {
	h *NvimHost
}

// bridgeErr folds an RPC failure into the capability-unavailable
// marker so the engine degrades to keystrokes instead of aborting.
func bridgeErr(op string, err error) error {
	return fmt.Errorf("%s: %s: %w", op, err, ErrFastUnavailable)
}

func (f *nvimFast) UpdateLine(ctx context.Context, text string, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.h.v.SetBufferLines(0, index, index+1, false, [][]byte{[]byte(text)}); err != nil {
		return bridgeErr(fmt.Sprintf("update line %d", index), err)
	}
	return nil
}

func (f *nvimFast) InsertLine(ctx context.Context, text string, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.h.v.SetBufferLines(0, index, index, false, [][]byte{[]byte(text)}); err != nil {
		return bridgeErr(fmt.Sprintf("insert line %d", index), err)
	}
	return nil
}

func (f *nvimFast) WaitForCommit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.h.v.Command("write"); err != nil {
		return bridgeErr("write", err)
	}
	return nil
}

func (h *NvimHost) LineByID(ctx context.Context, sel IDSelector, id string) (LineHandle, error) {
	return nil, ErrLineNotFound
}

func (h *NvimHost) LineAt(ctx context.Context, index int) (LineHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	count, err := h.v.BufferLineCount(0)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= count {
		return nil, ErrLineNotFound
	}
	return &nvimLine{h: h, index: index}, nil
}

func (h *NvimHost) LineByText(ctx context.Context, text string) (LineHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := h.v.BufferLines(0, 0, -1, true)
	if err != nil {
		return nil, err
	}
	for i, b := range raw {
		if string(b) == text {
			return &nvimLine{h: h, index: i}, nil
		}
	}
	return nil, ErrLineNotFound
}

func (h *NvimHost) Press(ctx context.Context, key Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch key {
	case KeySelectAll:
		h.selecting = true
		h.visual = true
		return h.feed("ggVG")
	case KeyDelete:
		if h.selecting {
			h.selecting = false
			if !h.visual {
				return nil // empty selection, nothing to delete
			}
			h.visual = false
			h.beforeCursor = true
			return h.feed(`"_d`)
		}
		return h.collapseLine()
	case KeyLineStart:
		h.beforeCursor = true
		return h.feed("0")
	case KeyLineEnd:
		h.beforeCursor = false
		return h.feed("$")
	case KeyLineBreak:
		keys := "a<CR><Esc>"
		if h.beforeCursor {
			keys = "i<CR><Esc>"
		}
		// the cursor lands on the first character of the second segment
		h.beforeCursor = true
		return h.feed(keys)
	default:
		return fmt.Errorf("unknown key action %q", key)
	}
}

// collapseLine removes the (empty) cursor line by joining it with its
// neighbor: the next line when one exists, else the previous one.
func (h *NvimHost) collapseLine() error {
	pos, err := h.v.WindowCursor(0)
	if err != nil {
		return err
	}
	count, err := h.v.BufferLineCount(0)
	if err != nil {
		return err
	}
	if pos[0] >= count && count > 1 {
		return h.feed("kgJ")
	}
	return h.feed("gJ")
}

func (h *NvimHost) Type(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.selecting = false
	h.visual = false
	if text == "" {
		// "i<Esc>" alone would shift the cursor left a column
		return nil
	}
	// leaving insert mode parks the cursor on the last typed character
	h.beforeCursor = false
	esc := strings.ReplaceAll(text, "<", "<lt>")
	esc = strings.ReplaceAll(esc, "\n", "<CR>")
	return h.feed("i" + esc + "<Esc>")
}

func (h *NvimHost) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (h *NvimHost) feed(keys string) error {
	if h.send != nil {
		return h.send(keys)
	}
	_, err := h.v.Input(keys)
	return err
}

type nvimLine struct {
	h     *NvimHost
	index int
}

func (l *nvimLine) ScrollIntoView(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.h.v.Command(fmt.Sprintf("normal! %dGzz", l.index+1))
}

func (l *nvimLine) Focus(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.h.selecting = false
	l.h.visual = false
	l.h.beforeCursor = true
	return l.h.v.SetWindowCursor(0, [2]int{l.index + 1, 0})
}

func (l *nvimLine) SelectContent(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := l.h.v.BufferLines(0, l.index, l.index+1, true)
	if err != nil {
		return err
	}
	l.h.selecting = true
	if len(raw) == 0 || len(raw[0]) == 0 {
		l.h.visual = false
		return nil // empty line, the selection stays empty
	}
	if err := l.h.feed("0v$"); err != nil {
		return err
	}
	l.h.visual = true
	return nil
}
