package tensor

import "testing"

func TestPoolGetReusesBuffer(t *testing.T) {
	p := NewPool(4)
	buf := p.Get(64)
	if len(buf) != 64 {
		t.Fatalf("Get() len = %d, want 64", len(buf))
	}
	buf[0] = 0xFF
	p.Put(buf)

	reused := p.Get(64)
	if &reused[0] != &buf[0] {
		t.Errorf("Get() after Put() did not reuse the same backing array")
	}
	if reused[0] != 0 {
		t.Errorf("reused buffer not cleared: got %d, want 0", reused[0])
	}
}

func TestPoolMaxSizeDiscardsExcess(t *testing.T) {
	p := NewPool(1)
	p.Put(make([]byte, 32))
	p.Put(make([]byte, 32))

	p.mu.Lock()
	n := len(p.buckets[32])
	p.mu.Unlock()
	if n != 1 {
		t.Errorf("bucket len = %d, want 1", n)
	}
}

func TestPoolPutNilIsNoop(t *testing.T) {
	p := NewPool(0)
	p.Put(nil)
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, bucket := range p.buckets {
		if len(bucket) != 0 {
			t.Errorf("Put(nil) added to a bucket")
		}
	}
}
