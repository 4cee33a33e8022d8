package main

import "strconv"

// NodeKind represents different types of AST nodes
type NodeKind string

const (
	NodeVar      NodeKind = "NodeVar"
	NodeConst    NodeKind = "NodeConst"
	NodeAdd      NodeKind = "NodeAdd"
	NodeSub      NodeKind = "NodeSub"
	NodeMul      NodeKind = "NodeMul"
	NodeDiv      NodeKind = "NodeDiv"
	NodeLess     NodeKind = "NodeLess"
	NodeGreater  NodeKind = "NodeGreater"
	NodeSet      NodeKind = "NodeSet"
	NodeFuncDef  NodeKind = "NodeFuncDef"
	NodeFuncCall NodeKind = "NodeFuncCall"
	NodeReturn   NodeKind = "NodeReturn"
	NodeIf       NodeKind = "NodeIf"
	NodeIfElse   NodeKind = "NodeIfElse"
	NodeWhile    NodeKind = "NodeWhile"
	NodeDo       NodeKind = "NodeDo"
	NodeEmpty    NodeKind = "NodeEmpty"
	NodeSeq      NodeKind = "NodeSeq"
	NodeExpr     NodeKind = "NodeExpr"
	NodeProgram  NodeKind = "NodeProgram"
)

// NodeID indexes a node in its Arena.
type NodeID int32

// NoNode marks an unset child.
const NoNode NodeID = -1

// ASTNode is one arena entry. Children are owned exclusively by their parent.
type ASTNode struct {
	Kind NodeKind
	// Children, in grammar order.
	O1, O2, O3 NodeID
	// NodeConst: the value. NodeVar, NodeFuncDef, NodeFuncCall: the symbol slot.
	Val int64
}

// Arena allocates nodes in acquisition order up to a fixed capacity.
type Arena struct {
	nodes    []ASTNode
	capacity int
}

func NewArena(capacity int) *Arena {
	return &Arena{capacity: capacity}
}

// New allocates a childless node of the given kind.
func (a *Arena) New(kind NodeKind) (NodeID, error) {
	if len(a.nodes) >= a.capacity {
		return NoNode, compileErrorf(KindCapacity, 0, "too many AST nodes (limit %d)", a.capacity)
	}
	a.nodes = append(a.nodes, ASTNode{Kind: kind, O1: NoNode, O2: NoNode, O3: NoNode})
	return NodeID(len(a.nodes) - 1), nil
}

// Gen allocates a node with its first two children set.
func (a *Arena) Gen(kind NodeKind, o1, o2 NodeID) (NodeID, error) {
	id, err := a.New(kind)
	if err != nil {
		return NoNode, err
	}
	a.nodes[id].O1 = o1
	a.nodes[id].O2 = o2
	return id, nil
}

// Node returns the node for id. The pointer is invalidated by the next allocation.
func (a *Arena) Node(id NodeID) *ASTNode {
	return &a.nodes[id]
}

// Len is the number of nodes allocated so far.
func (a *Arena) Len() int {
	return len(a.nodes)
}

// ToSExpr converts the subtree at id to s-expression form. Symbol slots are
// printed by name when syms can resolve them.
func (a *Arena) ToSExpr(id NodeID, syms Resolver) string {
	if id == NoNode {
		return "()"
	}
	n := a.nodes[id]
	switch n.Kind {
	case NodeVar:
		return "(var " + symbolName(syms, n.Val) + ")"
	case NodeConst:
		return "(integer " + strconv.FormatInt(n.Val, 10) + ")"
	case NodeAdd, NodeSub, NodeMul, NodeDiv, NodeLess, NodeGreater:
		return "(binary \"" + binaryOp(n.Kind) + "\" " + a.ToSExpr(n.O1, syms) + " " + a.ToSExpr(n.O2, syms) + ")"
	case NodeSet:
		return "(assign " + a.ToSExpr(n.O1, syms) + " " + a.ToSExpr(n.O2, syms) + ")"
	case NodeFuncDef:
		return "(func " + symbolName(syms, n.Val) + " " + a.ToSExpr(n.O1, syms) + ")"
	case NodeFuncCall:
		return "(call " + symbolName(syms, n.Val) + ")"
	case NodeReturn:
		return "(return)"
	case NodeIf:
		return "(if " + a.ToSExpr(n.O1, syms) + " " + a.ToSExpr(n.O2, syms) + ")"
	case NodeIfElse:
		return "(if " + a.ToSExpr(n.O1, syms) + " " + a.ToSExpr(n.O2, syms) + " " + a.ToSExpr(n.O3, syms) + ")"
	case NodeWhile:
		return "(while " + a.ToSExpr(n.O1, syms) + " " + a.ToSExpr(n.O2, syms) + ")"
	case NodeDo:
		return "(do " + a.ToSExpr(n.O1, syms) + " " + a.ToSExpr(n.O2, syms) + ")"
	case NodeEmpty:
		return "(empty)"
	case NodeSeq:
		return "(seq " + a.ToSExpr(n.O1, syms) + " " + a.ToSExpr(n.O2, syms) + ")"
	case NodeExpr:
		return "(expr " + a.ToSExpr(n.O1, syms) + ")"
	case NodeProgram:
		return "(program " + a.ToSExpr(n.O1, syms) + ")"
	default:
		return ""
	}
}

func binaryOp(kind NodeKind) string {
	switch kind {
	case NodeAdd:
		return "+"
	case NodeSub:
		return "-"
	case NodeMul:
		return "*"
	case NodeDiv:
		return "/"
	case NodeLess:
		return "<"
	case NodeGreater:
		return ">"
	}
	return "?"
}

func symbolName(syms Resolver, slot int64) string {
	if syms != nil {
		if sym := syms.Entry(int(slot)); sym != nil {
			return strconv.Quote(sym.Name)
		}
	}
	return strconv.FormatInt(slot, 10)
}
