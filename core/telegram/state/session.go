package state

import (
	"context"
	"fmt"
	"strconv"
)

// Reserved session fields. Command bookkeeping lives next to user variables
// in the same hash, which is why these names carry the underscore prefix.
const (
	fieldCommand    = "_command"
	stepFieldPrefix = "_command_"
	stepFieldSuffix = "_step"
)

func stepField(command string) string {
	return stepFieldPrefix + command + stepFieldSuffix
}

// Session is a typed view over one (bot, chat) hash in a Store. All methods
// treat missing data as defaults, never as failures, except where documented.
type Session struct {
	store Store
	key   string
}

// Bind attaches a session to the store entry for the given bot and chat.
func Bind(store Store, botUID string, chatID int64) *Session {
	return &Session{store: store, key: fmt.Sprintf("%s.%d", botUID, chatID)}
}

// Key returns the store key this session is bound to.
func (s *Session) Key() string { return s.key }

// Get returns the value of an arbitrary field, or def when the field or the
// whole session is absent.
func (s *Session) Get(ctx context.Context, field, def string) (string, error) {
	v, err := s.store.GetField(ctx, s.key, field)
	if IsMiss(err) {
		return def, nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// Set writes an arbitrary field and refreshes the session's lifetime.
func (s *Session) Set(ctx context.Context, field, value string) error {
	return s.store.PutField(ctx, s.key, field, value)
}

// Delete removes an arbitrary field. Deleting what is not there succeeds.
func (s *Session) Delete(ctx context.Context, field string) error {
	err := s.store.RemoveField(ctx, s.key, field)
	if IsMiss(err) {
		return nil
	}
	return err
}

// Reset drops the whole session, command bookkeeping included.
func (s *Session) Reset(ctx context.Context) error {
	return s.store.RemoveKey(ctx, s.key)
}

// CommandName returns the active command, or "" when the chat is idle.
func (s *Session) CommandName(ctx context.Context) (string, error) {
	return s.Get(ctx, fieldCommand, "")
}

// SetCommandName marks the command as active without touching its step.
func (s *Session) SetCommandName(ctx context.Context, name string) error {
	return s.Set(ctx, fieldCommand, name)
}

// CommandStep returns the current step of the named command, defaulting to
// zero when the step was never set or cannot be parsed.
func (s *Session) CommandStep(ctx context.Context, name string) (int, error) {
	raw, err := s.Get(ctx, stepField(name), "0")
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// SetCommandStep records the step of the active command. Setting a step with
// no active command is an error; steps belong to a command in flight.
func (s *Session) SetCommandStep(ctx context.Context, step int) error {
	name, err := s.CommandName(ctx)
	if err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("state: no active command to step")
	}
	return s.Set(ctx, stepField(name), strconv.Itoa(step))
}

// StartCommand activates a command at step zero, replacing whatever was
// active before.
func (s *Session) StartCommand(ctx context.Context, name string) error {
	if err := s.SetCommandName(ctx, name); err != nil {
		return err
	}
	return s.Set(ctx, stepField(name), "0")
}

// FinishCommand clears the active command and its step counter. The step
// field is resolved and removed before the command name so the counter is
// never orphaned.
func (s *Session) FinishCommand(ctx context.Context) error {
	name, err := s.CommandName(ctx)
	if err != nil {
		return err
	}
	if name == "" {
		return nil
	}
	if err := s.Delete(ctx, stepField(name)); err != nil {
		return err
	}
	return s.Delete(ctx, fieldCommand)
}
