package git

import "strings"

// BrowseURL converts a git clone URL into an https://github.com/... form
// suitable for web browsers. Examples:
//
//	git@github.com:user/repo.git      -> https://github.com/user/repo
//	ssh://git@github.com/user/repo.git -> https://github.com/user/repo
//	https://github.com/user/repo       -> https://github.com/user/repo
//
// Returns "#" if the input is empty.
func BrowseURL(gitURL string) string {
	if gitURL == "" || gitURL == "#" {
		return "#"
	}

	if strings.HasPrefix(gitURL, "git@github.com:") {
		gitURL = strings.Replace(gitURL, "git@github.com:", "https://github.com/", 1)
	} else if strings.HasPrefix(gitURL, "ssh://git@github.com/") {
		gitURL = strings.Replace(gitURL, "ssh://git@github.com/", "https://github.com/", 1)
	}

	gitURL = strings.TrimSuffix(gitURL, ".git")

	if !strings.HasPrefix(gitURL, "http://") && !strings.HasPrefix(gitURL, "https://") {
		gitURL = "https://github.com/" + strings.TrimPrefix(strings.TrimPrefix(gitURL, "github.com/"), "github.com:")
	}

	return gitURL
}
