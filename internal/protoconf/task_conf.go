package protoconf

import (
	"errors"
	"fmt"

	"github.com/zjrosen/confhub/internal/format"
	"github.com/zjrosen/confhub/internal/hub"
	"github.com/zjrosen/confhub/internal/load"
	"github.com/zjrosen/confhub/internal/ordered"
)

// Task is one row of TaskConf.
type Task struct {
	ID            int32   `json:"id" jsonschema:"minimum=1"`
	Name          string  `json:"name"`
	RewardItemIDs []int32 `json:"reward_item_ids,omitempty"`
}

// TaskConfData is the TaskConf file layout.
type TaskConfData struct {
	Tasks []*Task `json:"tasks"`
}

// TaskConf indexes tasks by ID and resolves their reward items against
// ItemConf once every table has loaded.
type TaskConf struct {
	hub.Base
	data    *TaskConfData
	byID    *ordered.Index[int32, *Task]
	rewards *ordered.Group[int32, *Item]
}

// NewTaskConf returns an empty TaskConf.
func NewTaskConf() *TaskConf {
	return &TaskConf{
		data:    &TaskConfData{},
		byID:    ordered.NewIndex[int32, *Task](0),
		rewards: ordered.NewGroup[int32, *Item](),
	}
}

// Name implements hub.Messager.
func (x *TaskConf) Name() string { return TaskConfDescriptor.Name }

// Load implements hub.Messager.
func (x *TaskConf) Load(dir string, fmt format.Format, opts *load.MessagerOptions) error {
	return hub.Decode(&x.Base, &x.data, x.Name(), dir, fmt, opts)
}

// Message implements hub.Messager.
func (x *TaskConf) Message() any { return x.data }

// ProcessAfterLoad builds the ID index and rejects null rows.
func (x *TaskConf) ProcessAfterLoad() error {
	x.byID = ordered.NewIndex[int32, *Task](len(x.data.Tasks))
	for i, t := range x.data.Tasks {
		if t == nil {
			return nullRow(i)
		}
		if x.byID.Put(t.ID, t) {
			return fmt.Errorf("duplicate task id %d", t.ID)
		}
	}
	return nil
}

// ProcessAfterLoadAll maps each task to its reward item rows. It also
// runs when ProcessAfterLoad failed, so null rows are skipped here.
func (x *TaskConf) ProcessAfterLoadAll(h *hub.Hub) error {
	items, ok := hub.Get(h, ItemConfDescriptor)
	if !ok {
		return fmt.Errorf("%s requires %s", x.Name(), ItemConfDescriptor.Name)
	}
	x.rewards = ordered.NewGroup[int32, *Item]()
	var errs []error
	for _, t := range x.data.Tasks {
		if t == nil {
			continue
		}
		for _, id := range t.RewardItemIDs {
			it, err := items.Get(id)
			if err != nil {
				errs = append(errs, fmt.Errorf("task %d reward: %w", t.ID, err))
				continue
			}
			x.rewards.Add(t.ID, it)
		}
	}
	return errors.Join(errs...)
}

// Data returns the decoded file.
func (x *TaskConf) Data() *TaskConfData { return x.data }

// Get returns the task with id.
func (x *TaskConf) Get(id int32) (*Task, error) {
	t, ok := x.byID.Get(id)
	if !ok {
		return nil, notFound(x.Name(), id)
	}
	return t, nil
}

// Rewards returns the reward item rows of a task in listed order.
func (x *TaskConf) Rewards(taskID int32) []*Item { return x.rewards.Get(taskID) }
