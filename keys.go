package loom

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"
)

// Mod is a set of key modifiers.
type Mod uint8

const (
	ModShift Mod = 1 << iota
	ModAlt
	ModCtrl
)

// Key is a decoded key press. Printable keys carry their rune; function keys
// use the negative runes below.
type Key struct {
	Rune rune
	Mod  Mod
}

const (
	KeyUp rune = -1 - iota
	KeyDown
	KeyRight
	KeyLeft
	KeyHome
	KeyEnd
	KeyInsert
	KeyDelete
	KeyPageUp
	KeyPageDown
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
)

const (
	KeyTab       rune = '\t'
	KeyEnter     rune = '\r'
	KeyEscape    rune = 0x1b
	KeyBackspace rune = 0x7f
)

var keyNames = map[rune]string{
	KeyUp:        "up",
	KeyDown:      "down",
	KeyRight:     "right",
	KeyLeft:      "left",
	KeyHome:      "home",
	KeyEnd:       "end",
	KeyInsert:    "insert",
	KeyDelete:    "delete",
	KeyPageUp:    "pgup",
	KeyPageDown:  "pgdown",
	KeyF1:        "f1",
	KeyF2:        "f2",
	KeyF3:        "f3",
	KeyF4:        "f4",
	KeyF5:        "f5",
	KeyF6:        "f6",
	KeyF7:        "f7",
	KeyF8:        "f8",
	KeyF9:        "f9",
	KeyF10:       "f10",
	KeyF11:       "f11",
	KeyF12:       "f12",
	KeyTab:       "tab",
	KeyEnter:     "enter",
	KeyEscape:    "esc",
	KeyBackspace: "backspace",
	' ':          "space",
}

var keysByName = func() map[string]rune {
	m := make(map[string]rune, len(keyNames))
	for r, name := range keyNames {
		m[name] = r
	}
	m["escape"] = KeyEscape
	m["return"] = KeyEnter
	return m
}()

// String returns the key in the form ParseKey reads, e.g. "ctrl+c".
func (k Key) String() string {
	var b strings.Builder
	if k.Mod&ModCtrl != 0 {
		b.WriteString("ctrl+")
	}
	if k.Mod&ModAlt != 0 {
		b.WriteString("alt+")
	}
	if k.Mod&ModShift != 0 {
		b.WriteString("shift+")
	}
	if name, ok := keyNames[k.Rune]; ok {
		b.WriteString(name)
	} else {
		b.WriteRune(k.Rune)
	}
	return b.String()
}

// ParseKey reads a key such as "q", "ctrl+c", "alt+enter" or "shift+tab".
func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, "+")
	// "+" and "ctrl++" name the plus key itself
	if strings.HasSuffix(s, "++") || s == "+" {
		parts = append(parts[:len(parts)-2], "+")
	}
	var k Key
	for _, mod := range parts[:len(parts)-1] {
		switch strings.ToLower(mod) {
		case "ctrl":
			k.Mod |= ModCtrl
		case "alt":
			k.Mod |= ModAlt
		case "shift":
			k.Mod |= ModShift
		default:
			return Key{}, fmt.Errorf("key %q: unknown modifier %q", s, mod)
		}
	}
	name := parts[len(parts)-1]
	if r, ok := keysByName[strings.ToLower(name)]; ok {
		k.Rune = r
		return k, nil
	}
	if utf8.RuneCountInString(name) != 1 {
		return Key{}, fmt.Errorf("key %q: unknown key %q", s, name)
	}
	k.Rune, _ = utf8.DecodeRuneInString(name)
	if k.Mod&ModCtrl != 0 {
		k.Rune = toLowerASCII(k.Rune)
	}
	return k, nil
}

func toLowerASCII(r rune) rune {
	if 'A' <= r && r <= 'Z' {
		return r + 'a' - 'A'
	}
	return r
}

// keySeqTimeout bounds the wait for the rest of an escape sequence. A lone
// ESC followed by nothing within it is the escape key.
var keySeqTimeout = 10 * time.Millisecond

var errSeqTimeout = errors.New("key sequence timed out")

// keyDecoder turns raw terminal input chunks into keys.
type keyDecoder struct {
	in      <-chan []byte
	pending []byte
}

func (d *keyDecoder) fill(timeout time.Duration) error {
	var timer <-chan time.Time
	if timeout >= 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}
	select {
	case b, ok := <-d.in:
		if !ok {
			return io.EOF
		}
		d.pending = append(d.pending, b...)
		return nil
	case <-timer:
		return errSeqTimeout
	}
}

// readRune returns the next rune, waiting at most timeout for it to arrive.
// A negative timeout waits forever.
func (d *keyDecoder) readRune(timeout time.Duration) (rune, error) {
	for !utf8.FullRune(d.pending) {
		if err := d.fill(timeout); err != nil {
			return 0, err
		}
	}
	r, n := utf8.DecodeRune(d.pending)
	d.pending = d.pending[n:]
	return r, nil
}

// next decodes one key. ok is false for a sequence that is not a key this
// decoder knows; it has been consumed and should be ignored.
func (d *keyDecoder) next() (k Key, ok bool, err error) {
	r, err := d.readRune(-1)
	if err != nil {
		return Key{}, false, err
	}
	if r != KeyEscape {
		return ctrlKey(r), true, nil
	}
	r2, err := d.readRune(keySeqTimeout)
	if err != nil {
		return Key{Rune: KeyEscape}, true, nil
	}
	switch r2 {
	case '[':
		return d.csi()
	case 'O':
		r3, err := d.readRune(keySeqTimeout)
		if err != nil {
			return Key{Rune: 'O', Mod: ModAlt}, true, nil
		}
		k, ok := ss3Keys[r3]
		return k, ok, nil
	}
	k = ctrlKey(r2)
	k.Mod |= ModAlt
	return k, true, nil
}

var ss3Keys = map[rune]Key{
	'A': {Rune: KeyUp}, 'B': {Rune: KeyDown}, 'C': {Rune: KeyRight}, 'D': {Rune: KeyLeft},
	'H': {Rune: KeyHome}, 'F': {Rune: KeyEnd},
	'P': {Rune: KeyF1}, 'Q': {Rune: KeyF2}, 'R': {Rune: KeyF3}, 'S': {Rune: KeyF4},
}

var csiByLast = map[rune]Key{
	'A': {Rune: KeyUp}, 'B': {Rune: KeyDown}, 'C': {Rune: KeyRight}, 'D': {Rune: KeyLeft},
	'H': {Rune: KeyHome}, 'F': {Rune: KeyEnd}, 'Z': {Rune: KeyTab, Mod: ModShift},
	'P': {Rune: KeyF1}, 'Q': {Rune: KeyF2}, 'R': {Rune: KeyF3}, 'S': {Rune: KeyF4},
}

var csiTilde = map[int]rune{
	1: KeyHome, 2: KeyInsert, 3: KeyDelete, 4: KeyEnd, 5: KeyPageUp, 6: KeyPageDown,
	7: KeyHome, 8: KeyEnd,
	11: KeyF1, 12: KeyF2, 13: KeyF3, 14: KeyF4, 15: KeyF5,
	17: KeyF6, 18: KeyF7, 19: KeyF8, 20: KeyF9, 21: KeyF10, 23: KeyF11, 24: KeyF12,
}

// csi decodes the rest of an ESC [ sequence: numeric parameters separated by
// ';' and a final byte.
func (d *keyDecoder) csi() (Key, bool, error) {
	var nums []int
	for {
		r, err := d.readRune(keySeqTimeout)
		if err != nil {
			// ESC [ alone is alt+[
			if len(nums) == 0 {
				return Key{Rune: '[', Mod: ModAlt}, true, nil
			}
			return Key{}, false, nil
		}
		switch {
		case r == ';':
			if len(nums) == 0 {
				nums = append(nums, 0)
			}
			nums = append(nums, 0)
		case '0' <= r && r <= '9':
			if len(nums) == 0 {
				nums = append(nums, 0)
			}
			nums[len(nums)-1] = nums[len(nums)-1]*10 + int(r-'0')
		default:
			k, ok := parseCSI(nums, r)
			return k, ok, nil
		}
	}
}

func parseCSI(nums []int, last rune) (Key, bool) {
	if k, ok := csiByLast[last]; ok {
		switch {
		case len(nums) == 0:
			return k, true
		case len(nums) == 2 && nums[0] == 1:
			return xtermModify(k, nums[1])
		}
		return Key{}, false
	}
	if last != '~' || len(nums) == 0 || len(nums) > 2 {
		return Key{}, false
	}
	r, ok := csiTilde[nums[0]]
	if !ok {
		return Key{}, false
	}
	if len(nums) == 1 {
		return Key{Rune: r}, true
	}
	return xtermModify(Key{Rune: r}, nums[1])
}

// xtermModify applies an xterm modifier parameter: 1 plus a bit set of
// shift, alt, ctrl and meta.
func xtermModify(k Key, mod int) (Key, bool) {
	if mod < 1 || mod > 16 {
		return Key{}, false
	}
	bits := mod - 1
	if bits&1 != 0 {
		k.Mod |= ModShift
	}
	if bits&(2|8) != 0 {
		k.Mod |= ModAlt
	}
	if bits&4 != 0 {
		k.Mod |= ModCtrl
	}
	return k, true
}

// ctrlKey maps a single input rune to a key, folding C0 control codes into
// ctrl-modified letters.
func ctrlKey(r rune) Key {
	switch {
	case r == 0:
		return Key{Rune: '@', Mod: ModCtrl}
	case r == KeyTab, r == KeyEnter, r == KeyEscape, r == KeyBackspace:
		return Key{Rune: r}
	case r == '\n':
		return Key{Rune: KeyEnter}
	case r == 0x08:
		return Key{Rune: KeyBackspace}
	case r < 0x1b:
		return Key{Rune: 'a' + r - 1, Mod: ModCtrl}
	case r < 0x20:
		return Key{Rune: r + 0x40, Mod: ModCtrl}
	}
	return Key{Rune: r}
}
