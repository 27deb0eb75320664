// Package faults classifies, records, and optionally retries failures from
// cross-window operations. Every failure crossing the IPC or controller
// boundary funnels through a Handler so callers see a category-appropriate
// user message instead of the raw technical error.
package faults

import (
	"errors"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// Category is the failure taxonomy.
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryPermission Category = "permission"
	CategoryNetwork    Category = "network"
	CategoryFilesystem Category = "filesystem"
	CategoryWindow     Category = "window"
	CategorySettings   Category = "settings"
	CategoryChat       Category = "chat"
	CategoryAvatar     Category = "avatar"
	CategorySystem     Category = "system"
	CategoryUnknown    Category = "unknown"
)

// Severity scores how bad a failure is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Origin names the component and operation a failure came from.
type Origin struct {
	Component string `json:"component"`
	Operation string `json:"operation"`
}

// Entry is one recorded failure. Immutable after creation except RetryCount.
type Entry struct {
	ID          string         `json:"id"`
	Category    Category       `json:"category"`
	Severity    Severity       `json:"severity"`
	Message     string         `json:"message"`
	UserMessage string         `json:"user_message"`
	Context     map[string]any `json:"context,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Origin      Origin         `json:"origin"`
	Retryable   bool           `json:"retryable"`
	RetryCount  int            `json:"retry_count"`
	MaxRetries  int            `json:"max_retries"`
}

// componentRules map origin-component keywords to categories. Checked before
// any message inspection so a failure inside the settings store stays a
// settings fault even when its message mentions files.
var componentRules = []struct {
	keyword  string
	category Category
}{
	{"registry", CategoryWindow},
	{"window", CategoryWindow},
	{"controller", CategoryWindow},
	{"settings", CategorySettings},
	{"config", CategorySettings},
	{"chat", CategoryChat},
	{"llm", CategoryChat},
	{"avatar", CategoryAvatar},
	{"expression", CategoryAvatar},
	{"ipc", CategoryNetwork},
}

// messageRules map message keywords to categories, checked in taxonomy order.
var messageRules = []struct {
	category Category
	keywords []string
}{
	{CategoryValidation, []string{"validation", "invalid", "must be", "out of range", "rejected", "below minimum"}},
	{CategoryPermission, []string{"permission", "access denied", "unauthorized", "forbidden", "operation not permitted"}},
	{CategoryNetwork, []string{"network", "connection", "timeout", "refused", "unreachable", "no such host", "socket", "broken pipe"}},
	{CategoryFilesystem, []string{"no such file", "file", "directory", "disk", "read-only"}},
	{CategoryWindow, []string{"window", "display", "x11", "bounds", "monitor"}},
	{CategorySettings, []string{"settings", "config", "preference"}},
	{CategoryChat, []string{"chat", "model", "prompt", "api key", "completion"}},
	{CategoryAvatar, []string{"avatar", "expression"}},
	{CategorySystem, []string{"panic", "fatal", "system"}},
}

// Classify determines the failure category. The origin component is matched
// first; message keywords are the fallback.
func Classify(err error, origin Origin) Category {
	if err == nil {
		return CategoryUnknown
	}

	component := strings.ToLower(origin.Component)
	for _, rule := range componentRules {
		if strings.Contains(component, rule.keyword) {
			return rule.category
		}
	}

	msg := strings.ToLower(err.Error())
	for _, rule := range messageRules {
		for _, kw := range rule.keywords {
			if strings.Contains(msg, kw) {
				return rule.category
			}
		}
	}
	return CategoryUnknown
}

// criticalKeywords escalate any failure to critical regardless of category.
var criticalKeywords = []string{"critical", "fatal", "crash", "corrupt"}

// baseSeverity is the fixed category→severity table.
var baseSeverity = map[Category]Severity{
	CategoryValidation: SeverityLow,
	CategoryPermission: SeverityHigh,
	CategoryNetwork:    SeverityMedium,
	CategoryFilesystem: SeverityHigh,
	CategoryWindow:     SeverityHigh,
	CategorySettings:   SeverityHigh,
	CategoryChat:       SeverityMedium,
	CategoryAvatar:     SeverityMedium,
	CategorySystem:     SeverityCritical,
	CategoryUnknown:    SeverityMedium,
}

// SeverityFor scores a failure. Message keyword overrides take priority over
// the category table.
func SeverityFor(err error, category Category) Severity {
	if err != nil {
		msg := strings.ToLower(err.Error())
		for _, kw := range criticalKeywords {
			if strings.Contains(msg, kw) {
				return SeverityCritical
			}
		}
	}
	if sev, ok := baseSeverity[category]; ok {
		return sev
	}
	return SeverityMedium
}

// transientFSKeywords mark filesystem errors worth retrying.
var transientFSKeywords = []string{"resource busy", "file busy", "too many open files"}

// Retryable reports whether a failure of the given category may be retried.
// Network and chat failures always are; filesystem only for transient OS
// conditions; validation and permission never.
func Retryable(category Category, err error) bool {
	switch category {
	case CategoryNetwork, CategoryChat:
		return true
	case CategoryValidation, CategoryPermission:
		return false
	case CategoryFilesystem:
		if err == nil {
			return false
		}
		if errors.Is(err, syscall.EBUSY) || errors.Is(err, syscall.EAGAIN) ||
			errors.Is(err, syscall.EMFILE) || errors.Is(err, syscall.ENFILE) {
			return true
		}
		msg := strings.ToLower(err.Error())
		for _, kw := range transientFSKeywords {
			if strings.Contains(msg, kw) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// userMessages are the category-appropriate strings surfaced to the user.
// The raw technical error never reaches them.
var userMessages = map[Category]string{
	CategoryValidation: "That value is not allowed.",
	CategoryPermission: "deskmate does not have permission to do that.",
	CategoryNetwork:    "Connection trouble. Please try again.",
	CategoryFilesystem: "Could not read or write a file deskmate needs.",
	CategoryWindow:     "A window operation failed.",
	CategorySettings:   "Your settings could not be saved or loaded.",
	CategoryChat:       "The chat assistant is unavailable right now.",
	CategoryAvatar:     "The avatar could not update its expression.",
	CategorySystem:     "Something went seriously wrong. Please restart deskmate.",
	CategoryUnknown:    "An unexpected error occurred.",
}

// UserMessage returns the user-facing string for a category.
func UserMessage(category Category) string {
	if msg, ok := userMessages[category]; ok {
		return msg
	}
	return userMessages[CategoryUnknown]
}

// NewEntry builds a fully classified entry for a failure.
func NewEntry(err error, origin Origin, details map[string]any) *Entry {
	category := Classify(err, origin)
	return &Entry{
		ID:          uuid.NewString(),
		Category:    category,
		Severity:    SeverityFor(err, category),
		Message:     err.Error(),
		UserMessage: UserMessage(category),
		Context:     details,
		Timestamp:   time.Now(),
		Origin:      origin,
		Retryable:   Retryable(category, err),
	}
}
