package handlers

import (
	"sentisense/internal/auth"
	"sentisense/internal/models"
)

// UserDTO is the public view of a user.
type UserDTO struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func toUserDTO(u *models.User) UserDTO {
	return UserDTO{Username: u.Username, Email: u.Email}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Credential string `json:"credential" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type checkUserRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Token    string `json:"token"`
}

type googleSignupRequest struct {
	Token    string `json:"token" validate:"required"`
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
}

type googleLoginRequest struct {
	Token string `json:"token" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

type tokenResponse struct {
	Message     string  `json:"message,omitempty"`
	AccessToken string  `json:"access_token"`
	TokenType   string  `json:"token_type"`
	User        UserDTO `json:"user"`
}

func toTokenResponse(s *auth.Session, message string) tokenResponse {
	return tokenResponse{
		Message:     message,
		AccessToken: s.AccessToken,
		TokenType:   "bearer",
		User:        toUserDTO(s.User),
	}
}

type analyzeRequest struct {
	Text string `json:"text" validate:"required"`
}

// sentimentResult is the stored payload of a text analysis.
type sentimentResult struct {
	Text      string  `json:"text"`
	Sentiment string  `json:"sentiment"`
	Score     float64 `json:"score"`
	Polarity  string  `json:"polarity"`
	Compound  float64 `json:"compound"`
}

type youtubeRequest struct {
	VideoURL string `json:"video_url" validate:"required"`
}

type youtubeComment struct {
	Text      string `json:"text"`
	Sentiment string `json:"sentiment"`
	Username  string `json:"username"`
}

type youtubeResult struct {
	VideoID  string           `json:"video_id"`
	Comments []youtubeComment `json:"comments"`
}

type redditRequest struct {
	PostURL string `json:"post_url" validate:"required"`
}

type redditPost struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	Content       string `json:"content"`
	URL           string `json:"url"`
	Upvotes       int    `json:"upvotes"`
	Downvotes     int    `json:"downvotes"`
	CommentsCount int    `json:"comments_count"`
}

type redditComment struct {
	Text      string `json:"text"`
	Sentiment string `json:"sentiment"`
	User      string `json:"user"`
}

type redditResult struct {
	PostID   string          `json:"post_id"`
	Post     redditPost      `json:"post"`
	Comments []redditComment `json:"comments"`
}

type contactRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	Body    string `json:"body" validate:"required"`
}

type historyResponse struct {
	History []models.AnalysisEntry `json:"history"`
}
