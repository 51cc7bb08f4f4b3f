package arena

import "unsafe"

// listNode is written directly into the first bytes of a free block's
// payload. It only ever links memory that is either Go-managed (the
// head node embedded in Pool, kept reachable by the Pool itself) or
// OS-backed chunk memory outside the Go heap, which the garbage
// collector neither scans nor frees; both are valid unsafe.Pointer
// targets for the lifetime of the pool.
type listNode struct {
	prev, next *listNode
}

func listInit(head *listNode) {
	head.prev = head
	head.next = head
}

func listEmpty(head *listNode) bool {
	return head.next == head
}

// listPush inserts n right after head (LIFO).
func listPush(head, n *listNode) {
	n.next = head.next
	n.prev = head
	head.next.prev = n
	head.next = n
}

// listPop removes and returns the node right after head, or nil if empty.
func listPop(head *listNode) *listNode {
	if listEmpty(head) {
		return nil
	}
	n := head.next
	listRemove(n)
	return n
}

func listRemove(n *listNode) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev, n.next = nil, nil
}

func nodeAt(p unsafe.Pointer) *listNode {
	return (*listNode)(p)
}
