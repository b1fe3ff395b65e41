package utils

import (
	"regexp"
	"strings"
)

var githubHandlePattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]{0,37}[A-Za-z0-9])?$`)

func ValidateGitHubHandle(handle string) bool {
	return githubHandlePattern.MatchString(handle) && !strings.Contains(handle, "--")
}

// NormalizeHandle GitHub 用户名大小写不敏感
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}
