package classroom

import "fmt"

// BaseURL is the Transparent Classroom portal base URL
const BaseURL = "https://www.transparentclassroom.com"

// SignInPath is the login form path
const SignInPath = "/souls/sign_in"

// PostsPath returns the paginated posts listing path for a child
func PostsPath(schoolID, childID int) string {
	return fmt.Sprintf("/s/%d/children/%d/posts.json", schoolID, childID)
}
