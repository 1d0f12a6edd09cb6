package sim

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"command-center/pkg/model"
	"command-center/pkg/store"
)

// Scenario drives the scripted lifecycle of a dispatched task: routing,
// planning, one executing phase per specialist with inter-agent messages,
// payment settlement, then completion. Deterministic for a fixed seed.
type Scenario struct {
	Hub   *Hub
	Store store.TaskStore
	Delay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

func NewScenario(hub *Hub, st store.TaskStore, delay time.Duration, seed int64) *Scenario {
	return &Scenario{Hub: hub, Store: st, Delay: delay, rng: rand.New(rand.NewSource(seed))}
}

// specialists picks agent roles from prompt keywords; every plan starts with
// the researcher.
func specialists(prompt string) []model.StepRef {
	p := strings.ToLower(prompt)
	steps := []model.StepRef{{Specialist: "agent-researcher", Action: "gather sources"}}
	if strings.Contains(p, "code") || strings.Contains(p, "build") || strings.Contains(p, "implement") {
		steps = append(steps, model.StepRef{Specialist: "agent-coder", Action: "write implementation"})
	}
	if strings.Contains(p, "data") || strings.Contains(p, "chart") || strings.Contains(p, "analyz") {
		steps = append(steps, model.StepRef{Specialist: "agent-analyst", Action: "aggregate data"})
	}
	if strings.Contains(p, "write") || strings.Contains(p, "article") || strings.Contains(p, "report") {
		steps = append(steps, model.StepRef{Specialist: "agent-writer", Action: "draft copy"})
	}
	return steps
}

// Run plays the task lifecycle to completion. Call in a goroutine.
func (s *Scenario) Run(task model.Task) {
	plan := specialists(task.Prompt)

	s.status(&task, model.StatusRouting, nil)
	s.status(&task, model.StatusPlanning, nil)

	for _, step := range plan {
		s.message(task.ID, "orchestrator", step.Specialist, fmt.Sprintf("assigning step: %s", step.Action), nil)
		st := step
		s.status(&task, model.StatusExecuting, &st)
		task.Steps = append(task.Steps, model.TaskStep{
			ID:         uuid.NewString(),
			Specialist: step.Specialist,
			Status:     "completed",
			Input:      step.Action,
			StartedAt:  time.Now(),
		})
		s.message(task.ID, step.Specialist, "orchestrator", fmt.Sprintf("step done: %s", step.Action), nil)
	}

	s.status(&task, model.StatusProcessing, nil)
	s.status(&task, model.StatusAwaitingPayment, nil)
	for _, step := range plan {
		s.payment(&task, step.Specialist)
	}

	s.status(&task, model.StatusCompleted, nil)

	result, _ := json.Marshal(map[string]interface{}{
		"summary": fmt.Sprintf("completed %d steps for prompt %q", len(plan), task.Prompt),
		"steps":   len(plan),
	})
	task.Result = result
	task.CompletedAt = time.Now()
	s.save(task)
	s.publish(model.Envelope{
		Type:   model.EnvTaskComplete,
		TaskID: task.ID,
		Result: result,
	})
	log.Printf("scenario complete task=%s steps=%d", task.ID, len(plan))
}

func (s *Scenario) status(task *model.Task, status model.TaskStatus, step *model.StepRef) {
	task.Status = status
	s.save(*task)
	s.publish(model.Envelope{
		Type:   model.EnvTaskStatus,
		TaskID: task.ID,
		Status: status,
		Step:   step,
	})
}

func (s *Scenario) message(taskID, from, to, content string, payload json.RawMessage) {
	s.publish(model.Envelope{
		Type:      model.EnvAgentMessage,
		TaskID:    taskID,
		From:      from,
		To:        to,
		Content:   content,
		Payload:   payload,
		Timestamp: time.Now(),
	})
}

func (s *Scenario) payment(task *model.Task, specialist string) {
	s.mu.Lock()
	amount := float64(s.rng.Intn(900)+100) / 100 // 1.00 .. 9.99
	sig := fmt.Sprintf("%016x", s.rng.Uint64())
	s.mu.Unlock()
	p := model.Payment{
		ID:          uuid.NewString(),
		TaskID:      task.ID,
		From:        "orchestrator",
		To:          specialist,
		Amount:      amount,
		Token:       "USDC",
		TxSignature: sig,
		Timestamp:   time.Now(),
	}
	task.Payments = append(task.Payments, p)
	s.save(*task)
	s.publish(model.Envelope{
		Type:      model.EnvPayment,
		TaskID:    task.ID,
		From:      p.From,
		To:        p.To,
		Amount:    p.Amount,
		Token:     p.Token,
		TxSig:     p.TxSignature,
		Timestamp: p.Timestamp,
	})
}

func (s *Scenario) publish(env model.Envelope) {
	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}
	s.Hub.Publish(env)
}

func (s *Scenario) save(task model.Task) {
	if s.Store != nil {
		_ = s.Store.SaveTask(task)
	}
}
