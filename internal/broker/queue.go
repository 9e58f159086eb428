package broker

// MatchQueue 是只有一个等待位的撮合队列。
//
// 等待位中的连接必须在线、已注册且未配对；Occupant 在返回前会按 Registry
// 校验该条件，不满足时清空等待位。
type MatchQueue struct {
	slot ConnID
}

func NewMatchQueue() *MatchQueue {
	return &MatchQueue{}
}

// Occupant 返回当前有效的等待者。
func (q *MatchQueue) Occupant(reg *Registry) (*Connection, bool) {
	if q.slot == "" {
		return nil, false
	}
	c, ok := reg.Lookup(q.slot)
	if !ok || !c.Registered() || c.Paired() {
		q.slot = ""
		return nil, false
	}
	return c, true
}

// Enqueue 将 id 放入等待位，覆盖原有占用者。
func (q *MatchQueue) Enqueue(id ConnID) {
	q.slot = id
}

// Cancel 仅当等待位正是 id 时清空，返回是否清空。
func (q *MatchQueue) Cancel(id ConnID) bool {
	if q.slot == "" || q.slot != id {
		return false
	}
	q.slot = ""
	return true
}

// Holds 判断等待位是否为 id。
func (q *MatchQueue) Holds(id ConnID) bool {
	return id != "" && q.slot == id
}

// Waiting 返回等待位中的 id，不做校验。
func (q *MatchQueue) Waiting() (ConnID, bool) {
	return q.slot, q.slot != ""
}

func (q *MatchQueue) Clear() {
	q.slot = ""
}
