package cbor

// contextKind is the shape of an open container frame.
type contextKind int

const (
	contextRoot contextKind = iota
	contextArray
	contextObject
)

// writeContext is a stack frame tracking one open container on the encode
// side (component D). Its only observable effect for this codec is the
// name-before-value alternation check and, optionally, duplicate-name
// detection within one object scope.
type writeContext struct {
	parent       *writeContext
	kind         contextKind
	expectName   bool // true inside an object, when the next call must be a field name
	seen         int
	currentName  string
	dupDetect    bool
	namesSeen    map[string]struct{}
}

func newWriteRootContext() *writeContext {
	return &writeContext{kind: contextRoot}
}

func (c *writeContext) createChildArray() *writeContext {
	return &writeContext{parent: c, kind: contextArray}
}

func (c *writeContext) createChildObject(dupDetect bool) *writeContext {
	child := &writeContext{parent: c, kind: contextObject, expectName: true, dupDetect: dupDetect}
	if dupDetect {
		child.namesSeen = make(map[string]struct{})
	}
	return child
}

// writeValue records that a scalar or container-opening value is about to
// be written, failing if the context is an object still expecting a field
// name.
func (c *writeContext) writeValue() error {
	if c.kind == contextObject && c.expectName {
		return writeViolationf("expected field name, got value")
	}
	c.seen++
	if c.kind == contextObject {
		c.expectName = true
	}
	return nil
}

// writeFieldName records a field name, failing if one was already written
// without an intervening value, or if it duplicates a name already seen in
// this object scope with duplicate detection enabled.
func (c *writeContext) writeFieldName(name string) error {
	if c.kind != contextObject {
		return writeViolationf("field name outside an object")
	}
	if !c.expectName {
		return writeViolationf("expected value, got field name %q", name)
	}
	if c.dupDetect {
		if _, dup := c.namesSeen[name]; dup {
			return writeViolationf("duplicate field name %q", name)
		}
		c.namesSeen[name] = struct{}{}
	}
	c.currentName = name
	c.expectName = false
	return nil
}

// readContext is a stack frame tracking one open container on the decode
// side (component E): same shape as writeContext, plus the declared
// element count of a definite-length container.
type readContext struct {
	parent      *readContext
	kind        contextKind
	expectedLen int // -1 means indefinite
	seen        int
	currentName string
	dupDetect   bool
	namesSeen   map[string]struct{}
	expectName  bool // for objects: true when the next token must be a field name
}

func newReadRootContext() *readContext {
	return &readContext{kind: contextRoot, expectedLen: -1}
}

func (c *readContext) createChildArray(length int) *readContext {
	if length < 0 {
		length = -1
	}
	return &readContext{parent: c, kind: contextArray, expectedLen: length}
}

func (c *readContext) createChildObject(length int, dupDetect bool) *readContext {
	if length < 0 {
		length = -1
	}
	child := &readContext{parent: c, kind: contextObject, expectedLen: length, dupDetect: dupDetect, expectName: true}
	if dupDetect {
		child.namesSeen = make(map[string]struct{})
	}
	return child
}

// hasExpectedLength reports whether this container declared a definite
// element count (false for indefinite-length containers and the root).
func (c *readContext) hasExpectedLength() bool { return c.expectedLen >= 0 }

// expectMoreValues reports whether the container can still produce more
// values: always true when indefinite, false once a definite-length
// container has reached its declared count.
func (c *readContext) expectMoreValues() bool {
	if !c.hasExpectedLength() {
		return true
	}
	return c.seen < c.expectedLen
}

// expectingFieldName reports whether, inside an object, the next token
// must be a FieldName rather than a value.
func (c *readContext) expectingFieldName() bool {
	return c.kind == contextObject && c.expectName
}

func (c *readContext) recordFieldName(name string) error {
	if c.dupDetect {
		if _, dup := c.namesSeen[name]; dup {
			return malformedf("duplicate field name %q", name)
		}
		c.namesSeen[name] = struct{}{}
	}
	c.currentName = name
	c.expectName = false
	return nil
}

func (c *readContext) recordValue() {
	c.seen++
	c.expectName = true
}
