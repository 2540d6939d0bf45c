package constants

// Issue keys the runner targets when no key is configured.
const (
	DefaultFetchIssue  = "DOP-10"
	DefaultAttachIssue = "DOP-a11"
)

// Environment variables read by the runner.
const (
	EnvPrefix     = "JIRARUN"
	EnvConfig     = "JIRARUN_CONFIG"
	EnvAtlasUser  = "ATLASSIAN_USER"
	EnvAtlasToken = "ATLASSIAN_TOKEN"
)

// Mock server defaults.
const (
	DefaultMockAddr = "127.0.0.1:8089"
)

// ExitMessage is logged once the fixed sequence has finished.
const ExitMessage = "Exiting script."
