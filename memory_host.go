package goChallenge

import "sync"

// MemoryContainerHost defines a public type used by goChallenge APIs.
//
// MemoryContainerHost is a process-local ContainerHost for headless
// deployments and tests. It mirrors the DOM contract: containers are
// created on demand, keep their identity across resets, and report whether
// a widget is currently rendered into them. Provider adapters call
// MarkRendered after a successful render and may attach attributes that
// Reset strips again.
type MemoryContainerHost struct {
	mu         sync.Mutex
	containers map[string]*memoryContainer
}

type memoryContainer struct {
	mode     PresentationMode
	rendered bool
	attrs    map[string]string
}

// NewMemoryContainerHost describes the newmemorycontainerhost operation and its observable behavior.
func NewMemoryContainerHost() *MemoryContainerHost {
	return &MemoryContainerHost{
		containers: make(map[string]*memoryContainer),
	}
}

// Contains describes the contains operation and its observable behavior.
func (h *MemoryContainerHost) Contains(containerID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.containers[containerID]
	return ok && c.rendered
}

// Ensure describes the ensure operation and its observable behavior.
//
// Ensure creates the container if missing and applies the presentation
// mode. It never fails for a memory host; the error return satisfies the
// ContainerHost contract for hosts that can.
func (h *MemoryContainerHost) Ensure(containerID string, mode PresentationMode) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.containers[containerID]
	if !ok {
		c = &memoryContainer{attrs: make(map[string]string)}
		h.containers[containerID] = c
	}
	c.mode = mode
	return nil
}

// Reset describes the reset operation and its observable behavior.
//
// Reset empties the container and strips provider-applied attributes. The
// container element itself survives, matching DOM teardown semantics.
func (h *MemoryContainerHost) Reset(containerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.containers[containerID]
	if !ok {
		return
	}
	c.rendered = false
	c.attrs = make(map[string]string)
}

// MarkRendered describes the markrendered operation and its observable behavior.
//
// MarkRendered records that a widget now occupies the container. Provider
// adapters call it after Render succeeds.
func (h *MemoryContainerHost) MarkRendered(containerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.containers[containerID]
	if !ok {
		c = &memoryContainer{attrs: make(map[string]string)}
		h.containers[containerID] = c
	}
	c.rendered = true
}

// SetAttribute describes the setattribute operation and its observable behavior.
func (h *MemoryContainerHost) SetAttribute(containerID, key, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.containers[containerID]
	if !ok {
		return
	}
	c.attrs[key] = value
}

// Attribute describes the attribute operation and its observable behavior.
func (h *MemoryContainerHost) Attribute(containerID, key string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.containers[containerID]
	if !ok {
		return "", false
	}
	v, ok := c.attrs[key]
	return v, ok
}

// Exists describes the exists operation and its observable behavior.
func (h *MemoryContainerHost) Exists(containerID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, ok := h.containers[containerID]
	return ok
}

// Mode describes the mode operation and its observable behavior.
func (h *MemoryContainerHost) Mode(containerID string) (PresentationMode, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.containers[containerID]
	if !ok {
		return "", false
	}
	return c.mode, true
}
