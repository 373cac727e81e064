package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goSample = `package sample

import "fmt"

type Greeter struct {
	Prefix string
}

func (g *Greeter) Greet(name string) string {
	inner := func(s string) string { return g.Prefix + s }
	return inner(name)
}

func Hello() {
	fmt.Println("hello")
}
`

func TestGoParser_TopLevelDecls(t *testing.T) {
	p := &GoParser{}
	nodes, err := p.Parse([]byte(goSample))
	require.NoError(t, err)

	// One type, one method, one function. The closure inside Greet
	// must not appear as a node.
	require.Len(t, nodes, 3)
	assert.Equal(t, TagClass, nodes[0].Tag)
	assert.Equal(t, TagMethod, nodes[1].Tag)
	assert.Equal(t, TagFunction, nodes[2].Tag)

	// Source order is preserved.
	assert.Less(t, nodes[0].StartByte, nodes[1].StartByte)
	assert.Less(t, nodes[1].StartByte, nodes[2].StartByte)

	// Spans cover the exact declaration text.
	src := []byte(goSample)
	assert.Contains(t, string(src[nodes[2].StartByte:nodes[2].EndByte]), "func Hello()")
	assert.Contains(t, string(src[nodes[1].StartByte:nodes[1].EndByte]), "func (g *Greeter) Greet")
}

func TestGoParser_LineNumbers(t *testing.T) {
	p := &GoParser{}
	nodes, err := p.Parse([]byte(goSample))
	require.NoError(t, err)

	// Greeter struct starts on line 5 and ends on line 7.
	assert.Equal(t, 5, nodes[0].StartLine)
	assert.Equal(t, 7, nodes[0].EndLine)
	// Lines are 1-based and inclusive for every node.
	for _, n := range nodes {
		assert.GreaterOrEqual(t, n.StartLine, 1)
		assert.GreaterOrEqual(t, n.EndLine, n.StartLine)
	}
}

func TestGoParser_SyntaxError(t *testing.T) {
	p := &GoParser{}
	_, err := p.Parse([]byte("package broken\n\nfunc Oops( {"))
	assert.Error(t, err)
}

func TestRegistry_Dispatch(t *testing.T) {
	r := NewRegistry()

	assert.True(t, r.Supported("go"))
	assert.False(t, r.Supported("ts"))
	assert.False(t, r.Supported("py"))

	nodes, err := r.Parse("go", []byte(goSample))
	require.NoError(t, err)
	assert.Len(t, nodes, 3)

	_, err = r.Parse("ts", []byte("const x = 1;"))
	assert.ErrorIs(t, err, ErrNoParser)
}
