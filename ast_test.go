package main

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestArenaAllocatesInOrder(t *testing.T) {
	a := NewArena(10)
	one, err := a.New(NodeConst)
	be.Err(t, err, nil)
	two, err := a.New(NodeConst)
	be.Err(t, err, nil)
	sum, err := a.Gen(NodeAdd, one, two)
	be.Err(t, err, nil)

	be.Equal(t, []NodeID{one, two, sum}, []NodeID{0, 1, 2})
	be.Equal(t, a.Node(sum).O1, one)
	be.Equal(t, a.Node(sum).O2, two)
	be.Equal(t, a.Node(sum).O3, NoNode)
	be.Equal(t, a.Node(one).O1, NoNode)
	be.Equal(t, a.Len(), 3)
}

func TestArenaCapacity(t *testing.T) {
	a := NewArena(1)
	_, err := a.New(NodeEmpty)
	be.Err(t, err, nil)

	id, err := a.Gen(NodeSeq, 0, 0)
	be.Equal(t, id, NoNode)
	be.Equal(t, ErrorKindOf(err), KindCapacity)
	be.Equal(t, err.Error(), "capacity error: too many AST nodes (limit 1)")
	be.Equal(t, a.Len(), 1)
}

func TestToSExpr(t *testing.T) {
	syms := NewSymbolTable(10)
	slot, _ := syms.BindVariable("x")

	a := NewArena(10)
	v, _ := a.New(NodeVar)
	a.Node(v).Val = int64(slot)
	c, _ := a.New(NodeConst)
	a.Node(c).Val = -5
	set, _ := a.Gen(NodeSet, v, c)

	be.Equal(t, a.ToSExpr(set, syms), `(assign (var "x") (integer -5))`)
	// Without a resolver, slots print as numbers.
	be.Equal(t, a.ToSExpr(v, nil), "(var 1)")
	be.Equal(t, a.ToSExpr(NoNode, syms), "()")
}
