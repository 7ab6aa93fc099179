package kittygfx

import (
	"strings"
	"testing"

	"github.com/texelation/kittygfx/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.Default()
	cfg.CacheDirTemplate = "kittygfx-test-*"
	s := NewStore(cfg, nil, nil)
	t.Cleanup(func() { s.Shutdown() })
	return s
}

func transmitRaw32(t *testing.T, s *Store, id uint32, w, h int) string {
	t.Helper()
	payload := make([]byte, w*h*4)
	for i := range payload {
		payload[i] = 0xff
	}
	enc := base64Encode(payload)
	cmd := ParseCommand([]byte("Ga=t,i=" + itoa(id) + ",f=32,s=" + itoa(w) + ",v=" + itoa(h) + ",m=0;" + string(enc)))
	return s.Dispatch(cmd)
}

func itoa(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func TestDispatchTransmitCreatesImage(t *testing.T) {
	s := newTestStore(t)
	resp := transmitRaw32(t, s, 1, 2, 2)
	if !strings.Contains(resp, "OK") {
		t.Fatalf("response = %q, want OK", resp)
	}
	img := s.ImageByID(1)
	if img == nil {
		t.Fatalf("expected image 1 to exist")
	}
	f := img.Frame(1)
	if f == nil || f.Status != StatusUploadSuccess {
		t.Fatalf("expected frame 1 uploaded, got %+v", f)
	}
	if s.DiskBytes() != 16 {
		t.Fatalf("disk bytes = %d, want 16", s.DiskBytes())
	}
}

func TestDispatchTransmitChunked(t *testing.T) {
	s := newTestStore(t)
	payload := make([]byte, 4*4*4)
	for i := range payload {
		payload[i] = byte(i)
	}
	half := len(payload) / 2
	enc1 := base64Encode(payload[:half])
	enc2 := base64Encode(payload[half:])

	first := ParseCommand([]byte("Ga=t,i=9,f=32,s=4,v=4,m=1;" + string(enc1)))
	resp := s.Dispatch(first)
	if resp != "" {
		t.Fatalf("expected no response for m=1 chunk, got %q", resp)
	}

	second := ParseCommand([]byte("i=9,m=0;" + string(enc2)))
	resp = s.Dispatch(second)
	if !strings.Contains(resp, "OK") {
		t.Fatalf("response = %q, want OK", resp)
	}

	img := s.ImageByID(9)
	if img.Frame(1).DiskSize != int64(len(payload)) {
		t.Fatalf("disk size = %d, want %d", img.Frame(1).DiskSize, len(payload))
	}
}

func TestDispatchQuietSuppressesSuccess(t *testing.T) {
	s := newTestStore(t)
	payload := make([]byte, 1*1*4)
	cmd := ParseCommand([]byte("Ga=t,i=5,f=32,s=1,v=1,m=0,q=1;" + string(base64Encode(payload))))
	resp := s.Dispatch(cmd)
	if resp != "" {
		t.Fatalf("expected suppressed response, got %q", resp)
	}
}

func TestDispatchPutCreatesPlacement(t *testing.T) {
	s := newTestStore(t)
	transmitRaw32(t, s, 3, 4, 4)
	s.StartDrawing(0, 8, 16)

	var placed PlaceholderRequest
	s.CreatePlaceholder = func(r PlaceholderRequest) { placed = r }

	cmd := ParseCommand([]byte("Ga=p,i=3,c=2,r=2"))
	resp := s.Dispatch(cmd)
	if !strings.Contains(resp, "OK") {
		t.Fatalf("response = %q, want OK", resp)
	}
	if placed.Rows != 2 || placed.Cols != 2 {
		t.Fatalf("placeholder request = %+v, want rows=2 cols=2", placed)
	}

	img := s.ImageByID(3)
	if len(img.Placements) != 1 {
		t.Fatalf("expected 1 placement, got %d", len(img.Placements))
	}
}

func TestDispatchDeleteAllFreesImages(t *testing.T) {
	s := newTestStore(t)
	transmitRaw32(t, s, 11, 2, 2)
	s.Dispatch(ParseCommand([]byte("Ga=p,i=11,c=1,r=1")))

	resp := s.Dispatch(ParseCommand([]byte("Ga=d,d=A")))
	if !strings.Contains(resp, "OK") {
		t.Fatalf("response = %q, want OK", resp)
	}
	if s.ImageByID(11) != nil {
		t.Fatalf("expected image 11 to be gone after uppercase delete-all")
	}
}

func TestDispatchDeleteLowercaseKeepsImage(t *testing.T) {
	s := newTestStore(t)
	transmitRaw32(t, s, 12, 2, 2)
	s.Dispatch(ParseCommand([]byte("Ga=p,i=12,c=1,r=1")))

	s.Dispatch(ParseCommand([]byte("Ga=d,d=a")))
	if s.ImageByID(12) == nil {
		t.Fatalf("expected image 12 to survive lowercase delete")
	}
	if len(s.ImageByID(12).Placements) != 0 {
		t.Fatalf("expected placements to be gone")
	}
}

func TestDispatchUnknownActionReportsEINVAL(t *testing.T) {
	s := newTestStore(t)
	resp := s.Dispatch(ParseCommand([]byte("Ga=z,i=1")))
	if !strings.Contains(resp, "EINVAL") {
		t.Fatalf("response = %q, want EINVAL", resp)
	}
}

func TestDispatchAnimationControlSetsState(t *testing.T) {
	s := newTestStore(t)
	transmitRaw32(t, s, 20, 2, 2)
	resp := s.Dispatch(ParseCommand([]byte("Ga=a,i=20,s=3,v=2")))
	if !strings.Contains(resp, "OK") {
		t.Fatalf("response = %q, want OK", resp)
	}
	img := s.ImageByID(20)
	if img.AnimationState != AnimLooping {
		t.Fatalf("animation state = %v, want looping", img.AnimationState)
	}
	if img.Loops != 2 {
		t.Fatalf("loops = %d, want 2", img.Loops)
	}
}
