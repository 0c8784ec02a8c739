package domain

import (
	"fmt"
	"time"
)

// transitions はライフサイクルの遷移表。on_hold からの復帰先は HeldFrom で決まるため別扱い。
var transitions = map[ProjectStatus][]ProjectStatus{
	StatusProposed:   {StatusApproved, StatusCancelled},
	StatusApproved:   {StatusInProgress, StatusOnHold, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusOnHold, StatusCancelled},
	StatusOnHold:     {StatusCancelled},
}

// AllowedTransitions はProjectの現在状態から遷移可能な状態の一覧を返す。
func AllowedTransitions(p *Project) []ProjectStatus {
	if p.Status.IsTerminal() {
		return nil
	}
	next := append([]ProjectStatus(nil), transitions[p.Status]...)
	if p.Status == StatusOnHold {
		switch p.HeldFrom {
		case StatusApproved, StatusInProgress:
			next = append([]ProjectStatus{p.HeldFrom}, next...)
		default:
			// 保留前の状態が記録されていない場合はどちらへの復帰も許可する
			next = append([]ProjectStatus{StatusApproved, StatusInProgress}, next...)
		}
	}
	return next
}

// CanTransition は from→to が遷移表に含まれるかを返す。
func CanTransition(p *Project, to ProjectStatus) bool {
	for _, s := range AllowedTransitions(p) {
		if s == to {
			return true
		}
	}
	return false
}

// Transition はProjectの状態を遷移させた新しいProjectを返す。入力は変更しない。
// 同じ入力に対して常に同じ結果を返すため、バージョン競合時にそのまま再試行できる。
//
// 検査順: 終端状態 → 遷移表 → 権限 → 進捗。
// progress が nil の場合は現在の進捗を引き継ぐ。on_hold への遷移では progress を無視し凍結する。
func Transition(p *Project, to ProjectStatus, progress *int, actor Principal, now time.Time) (*Project, error) {
	if !to.IsValid() {
		return nil, NewValidationError("status", "unknown project status "+string(to))
	}
	if p.Status.IsTerminal() {
		return nil, &RuleError{
			Kind:   ErrTerminalState,
			Entity: p.ID,
			Detail: fmt.Sprintf("status %s does not allow transition to %s", p.Status, to),
		}
	}
	if !CanTransition(p, to) {
		return nil, &RuleError{
			Kind:   ErrInvalidTransition,
			Entity: p.ID,
			Detail: fmt.Sprintf("%s -> %s is not allowed", p.Status, to),
		}
	}
	if err := authorizeTransition(p, to, actor); err != nil {
		return nil, err
	}

	next := p.Clone()
	if to != StatusOnHold && progress != nil {
		if err := checkProgress(p, *progress); err != nil {
			return nil, err
		}
		next.ProgressPercentage = *progress
	}
	if to == StatusCompleted && next.ProgressPercentage != 100 {
		return nil, &RuleError{
			Kind:   ErrInvalidProgress,
			Entity: p.ID,
			Detail: fmt.Sprintf("completion requires progress 100, got %d", next.ProgressPercentage),
		}
	}

	switch to {
	case StatusOnHold:
		next.HeldFrom = p.Status
	case StatusApproved:
		if p.Status == StatusProposed {
			approvedAt := now
			next.ApprovedBy = actor.ID
			next.ApprovedAt = &approvedAt
		}
		next.HeldFrom = ""
	default:
		next.HeldFrom = ""
	}
	next.Status = to
	next.UpdatedAt = now
	return next, nil
}

// UpdateProgress は進捗率を更新した新しいProjectを返す。入力は変更しない。
// 進捗は [0,100] かつ非減少。on_hold 中は凍結されている。
func UpdateProgress(p *Project, progress int, actor Principal, now time.Time) (*Project, error) {
	if p.Status.IsTerminal() {
		return nil, &RuleError{
			Kind:   ErrTerminalState,
			Entity: p.ID,
			Detail: fmt.Sprintf("status %s does not allow progress updates", p.Status),
		}
	}
	if err := AuthorizeOwned(actor, ActionEditProject, p.DeveloperID); err != nil {
		return nil, err
	}
	if p.Status == StatusOnHold {
		return nil, &RuleError{
			Kind:   ErrInvalidProgress,
			Entity: p.ID,
			Detail: "progress is frozen while on hold",
		}
	}
	if err := checkProgress(p, progress); err != nil {
		return nil, err
	}

	next := p.Clone()
	next.ProgressPercentage = progress
	next.UpdatedAt = now
	return next, nil
}

func checkProgress(p *Project, progress int) error {
	if progress < 0 || progress > 100 {
		return &RuleError{
			Kind:   ErrInvalidProgress,
			Entity: p.ID,
			Detail: fmt.Sprintf("progress %d is outside [0,100]", progress),
		}
	}
	if progress < p.ProgressPercentage {
		return &RuleError{
			Kind:   ErrInvalidProgress,
			Entity: p.ID,
			Detail: fmt.Sprintf("progress must not decrease (%d -> %d)", p.ProgressPercentage, progress),
		}
	}
	return nil
}

func authorizeTransition(p *Project, to ProjectStatus, actor Principal) error {
	// 承認は所有者に関係なく承認権限が必要
	if to == StatusApproved && p.Status == StatusProposed {
		return Authorize(actor, ActionApproveProject)
	}
	// 提案の却下は承認権限者にも許可する
	if to == StatusCancelled && p.Status == StatusProposed && CanPerform(actor.Role, ActionApproveProject) {
		return nil
	}
	return AuthorizeOwned(actor, ActionEditProject, p.DeveloperID)
}
