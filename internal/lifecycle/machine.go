// Package lifecycle 用状态机显式表达轮胎状态轨道的合法转换。
// 报废是唯一的终态：报废后的轮胎不再接受任何状态事件。
package lifecycle

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"

	"tiretrack/internal/models"
)

// 轨道状态常量
const (
	StateInService = "in_service"
	StateDisposed  = "disposed"
)

// 事件常量
const (
	EventRetread = "retread"
	EventRelabel = "relabel" // new / other 标签变更
	EventDispose = "dispose"
)

// Machine 单胎状态轨道状态机
type Machine struct {
	fsm *fsm.FSM
}

// NewMachine 按当前最新状态事件创建状态机
// latest 为 nil 表示没有历史事件（视为在役）
func NewMachine(latest *models.ConditionEvent) *Machine {
	initial := StateInService
	if latest != nil && latest.Kind == models.ConditionDisposed {
		initial = StateDisposed
	}

	return &Machine{
		fsm: fsm.NewFSM(
			initial,
			fsm.Events{
				// 在役状态下允许的事件；报废是终态，没有出边
				{Name: EventRetread, Src: []string{StateInService}, Dst: StateInService},
				{Name: EventRelabel, Src: []string{StateInService}, Dst: StateInService},
				{Name: EventDispose, Src: []string{StateInService}, Dst: StateDisposed},
			},
			fsm.Callbacks{},
		),
	}
}

// Current 当前轨道状态
func (m *Machine) Current() string {
	return m.fsm.Current()
}

// Apply 应用一个状态事件，非法转换返回 ErrTireDisposed
func (m *Machine) Apply(kind models.ConditionKind) error {
	event := eventForKind(kind)
	if err := m.fsm.Event(context.Background(), event); err != nil {
		if m.fsm.Current() == StateDisposed {
			return models.ErrTireDisposed
		}
		return fmt.Errorf("apply condition event %s: %w", event, err)
	}
	return nil
}

func eventForKind(kind models.ConditionKind) string {
	switch kind {
	case models.ConditionDisposed:
		return EventDispose
	case models.ConditionRetread:
		return EventRetread
	default:
		return EventRelabel
	}
}
