package frameq

import "testing"

func TestRingBuffer_BasicOperations(t *testing.T) {
	rb := New[int](4)

	if !rb.Empty() {
		t.Error("a freshly constructed ring buffer should be empty")
	}
	if rb.Len() != 0 {
		t.Errorf("empty buffer length = %d, want 0", rb.Len())
	}

	rb.Push(1)
	rb.Push(2)
	rb.Push(3)

	if rb.Empty() {
		t.Error("buffer should not be empty after pushing elements")
	}
	if rb.Len() != 3 {
		t.Errorf("buffer length = %d, want 3", rb.Len())
	}

	v, ok := rb.Pop()
	if !ok || v != 1 {
		t.Errorf("Pop() = %d, %v, want 1, true", v, ok)
	}
	if rb.Len() != 2 {
		t.Errorf("buffer length after pop = %d, want 2", rb.Len())
	}
}

func TestRingBuffer_GrowsPastCapacity(t *testing.T) {
	rb := New[int](2)

	for i := 0; i < 10; i++ {
		rb.Push(i)
	}
	if rb.Len() != 10 {
		t.Fatalf("buffer length = %d, want 10", rb.Len())
	}
	for i := 0; i < 10; i++ {
		v, ok := rb.Pop()
		if !ok || v != i {
			t.Fatalf("Pop() #%d = %d, %v, want %d, true", i, v, ok, i)
		}
	}
	if !rb.Empty() {
		t.Fatal("buffer should be empty after popping every pushed element")
	}
}

func TestRingBuffer_PeekDoesNotRemove(t *testing.T) {
	rb := New[string](4)
	rb.Push("frame-0")

	v, ok := rb.Peek()
	if !ok || *v != "frame-0" {
		t.Fatalf("Peek() = %v, %v, want frame-0, true", v, ok)
	}
	if rb.Len() != 1 {
		t.Fatalf("Peek must not remove the element, length = %d, want 1", rb.Len())
	}
}

func TestRingBuffer_Discard(t *testing.T) {
	rb := New[int](8)
	for i := 0; i < 5; i++ {
		rb.Push(i)
	}

	n := rb.Discard(3)
	if n != 3 {
		t.Fatalf("Discard(3) = %d, want 3", n)
	}
	if rb.Len() != 2 {
		t.Fatalf("buffer length after discard = %d, want 2", rb.Len())
	}
	v, _ := rb.Pop()
	if v != 3 {
		t.Fatalf("Pop() after discard = %d, want 3", v)
	}
}
