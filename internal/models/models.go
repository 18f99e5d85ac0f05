package models

import (
	"time"
)

// UserStatus is the lifecycle state of a license key.
type UserStatus string

const (
	UserStatusActive  UserStatus = "Active"
	UserStatusBanned  UserStatus = "Banned"
	UserStatusExpired UserStatus = "Expired"
)

// User is a license key holder. Users are never deleted, only their status changes.
type User struct {
	Key           string     `json:"key" yaml:"key"`
	Status        UserStatus `json:"status" yaml:"status"`
	Note          string     `json:"note" yaml:"note"`
	Executions    int        `json:"executions" yaml:"executions"`
	HWIDResets    int        `json:"hwidResets" yaml:"hwidResets"`
	Days          *int       `json:"days" yaml:"days"`
	DaysRemaining *int       `json:"daysRemaining" yaml:"daysRemaining"`
	BanReason     string     `json:"banReason,omitempty" yaml:"banReason,omitempty"`
	AntiCheat     bool       `json:"antiCheat" yaml:"antiCheat"`
	DiscordID     string     `json:"discordId,omitempty" yaml:"discordId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt" yaml:"createdAt"`
	LastExecution *time.Time `json:"lastExecution" yaml:"lastExecution"`
}

// Unlimited reports whether the key never expires.
func (u *User) Unlimited() bool {
	return u.Days == nil
}

// Webhooks holds the optional discord webhook URLs of a project.
type Webhooks struct {
	Execution string `json:"execution,omitempty" yaml:"execution,omitempty"`
	Ban       string `json:"ban,omitempty" yaml:"ban,omitempty"`
	HWIDReset string `json:"hwidReset,omitempty" yaml:"hwidReset,omitempty"`
}

// File is a named script owned by a project. Files are addressed by their index.
type File struct {
	Name    string `json:"name" yaml:"name"`
	Content string `json:"content" yaml:"content"`
}

// Project groups the script files served by one loader.
type Project struct {
	ID                string    `json:"id" yaml:"id"`
	Name              string    `json:"name" yaml:"name"`
	Files             []File    `json:"files" yaml:"files"`
	LoaderID          string    `json:"loaderId" yaml:"loaderId"`
	CreatedAt         time.Time `json:"createdAt" yaml:"createdAt"`
	Webhooks          *Webhooks `json:"webhooks,omitempty" yaml:"webhooks,omitempty"`
	HWIDResetAllowed  *bool     `json:"hwidResetAllowed,omitempty" yaml:"hwidResetAllowed,omitempty"`
	AutoDeleteExpired *bool     `json:"autoDeleteExpired,omitempty" yaml:"autoDeleteExpired,omitempty"`
	CloneAllowed      *bool     `json:"cloneAllowed,omitempty" yaml:"cloneAllowed,omitempty"`
	Cooldown          *int      `json:"cooldown,omitempty" yaml:"cooldown,omitempty"`
}

// ProjectSettings is a partial update of the optional project settings.
// Nil fields are left untouched.
type ProjectSettings struct {
	Webhooks          *Webhooks `json:"webhooks,omitempty"`
	HWIDResetAllowed  *bool     `json:"hwidResetAllowed,omitempty"`
	AutoDeleteExpired *bool     `json:"autoDeleteExpired,omitempty"`
	CloneAllowed      *bool     `json:"cloneAllowed,omitempty"`
	Cooldown          *int      `json:"cooldown,omitempty"`
}

// AutoSaveState is the process wide auto-save bookkeeping.
type AutoSaveState struct {
	Enabled         bool       `json:"enabled" yaml:"enabled"`
	FilesSavedCount int        `json:"filesSavedCount" yaml:"filesSavedCount"`
	LastBackupTime  *time.Time `json:"lastBackupTime" yaml:"lastBackupTime"`
}

// Backup is an immutable snapshot of projects and users.
type Backup struct {
	ID            string        `json:"id" yaml:"id"`
	Timestamp     time.Time     `json:"timestamp" yaml:"timestamp"`
	Projects      []Project     `json:"projects" yaml:"projects"`
	Users         []User        `json:"users" yaml:"users"`
	AutoSaveState AutoSaveState `json:"autoSaveState" yaml:"autoSaveState"`
}

// SocialLink is a link shown on the public profile page.
type SocialLink struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
	Icon     string `json:"icon,omitempty"`
	Color    string `json:"color,omitempty"`
}

// ViewStats are the profile page view counters.
type ViewStats struct {
	Total    int        `json:"total"`
	Today    int        `json:"today"`
	LastView *time.Time `json:"lastView"`
}

// Profile is the public profile page.
type Profile struct {
	Username    string       `json:"username"`
	Bio         string       `json:"bio"`
	Location    string       `json:"location"`
	SocialLinks []SocialLink `json:"socialLinks"`
	Views       ViewStats    `json:"views"`
	UpdatedAt   *time.Time   `json:"updatedAt,omitempty"`
}

// MirrorSettings are the locally stored GitHub mirror credentials.
type MirrorSettings struct {
	Token      string `json:"token"`
	Owner      string `json:"owner"`
	Repository string `json:"repo"`
	Branch     string `json:"branch,omitempty"`
}

// Configured reports whether the settings are complete enough to mirror files.
func (m MirrorSettings) Configured() bool {
	return m.Token != "" && m.Owner != "" && m.Repository != ""
}
