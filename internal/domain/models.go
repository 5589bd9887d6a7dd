package domain

import "time"

// Question models an MCQ question with exactly one correct option.
type Question struct {
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation,omitempty"`
}

// Valid reports whether the correct index actually points into the options.
func (q Question) Valid() bool {
	return len(q.Options) >= 2 && q.CorrectIndex >= 0 && q.CorrectIndex < len(q.Options)
}

// Quiz is an administrable collection of questions plus catalog metadata.
// Attempts is maintained by administrators; nothing in the quiz-taking flow
// increments it.
type Quiz struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Image       string     `json:"image"`
	Attempts    int64      `json:"attempts"`
	Daily       bool       `json:"daily"`
	Home        bool       `json:"home"`
	Questions   []Question `json:"questions,omitempty"`
}

// SessionStateName identifies where a quiz session is in its lifecycle.
type SessionStateName string

const (
	StatePresenting  SessionStateName = "presenting"
	StateAnswered    SessionStateName = "answered"
	StateCompleted   SessionStateName = "completed"
	StateNoQuestions SessionStateName = "no_questions"
)

// SessionView is the render-ready snapshot emitted on every session change.
// SelectedOption is nil until an answer is locked; it stays nil for a timeout.
type SessionView struct {
	State           SessionStateName `json:"state"`
	QuestionIndex   int              `json:"questionIndex"`
	TotalQuestions  int              `json:"totalQuestions"`
	Question        *Question        `json:"question,omitempty"`
	SelectedOption  *int             `json:"selectedOption,omitempty"`
	Answered        bool             `json:"answered"`
	Score           int              `json:"score"`
	TimeRemaining   int              `json:"timeRemaining"`
	ProgressPercent float64          `json:"progressPercent"`
	Finished        bool             `json:"finished"`
}

// LeaderboardEntry is a per-user cumulative score record, updated additively
// across sessions.
type LeaderboardEntry struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	TotalScore  int    `json:"totalScore"`
}

// User is an authenticated account. The session engine only ever sees the
// (ID, Name) pair.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// ReplyContext carries the quoted message a chat reply refers to.
type ReplyContext struct {
	MessageID  string `json:"messageId"`
	SenderName string `json:"senderName"`
	Text       string `json:"text"`
}

// ChatMessage is one entry on the doubts board.
type ChatMessage struct {
	ID        string        `json:"id"`
	UserID    string        `json:"uid"`
	Name      string        `json:"name"`
	Role      string        `json:"role"`
	Text      string        `json:"text"`
	ReplyTo   *ReplyContext `json:"replyTo,omitempty"`
	Timestamp int64         `json:"timestamp"`
}

// VideoKind discriminates short-form clips from full videos.
type VideoKind string

const (
	VideoShort VideoKind = "short"
	VideoFull  VideoKind = "video"
)

// Video is a catalog entry for the shorts/videos feeds.
type Video struct {
	ID        string    `json:"id"`
	Kind      VideoKind `json:"kind"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notification is an admin-pushed broadcast message.
type Notification struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// StreamCategory labels the kinds of study material filed under a stream.
type StreamCategory string

const (
	CategorySyllabus StreamCategory = "syllabus"
	CategoryOldPaper StreamCategory = "old_paper"
	CategoryBook     StreamCategory = "book"
	CategoryVideo    StreamCategory = "video"
)

// Stream is a course track students browse (RS-CIT, PGDCA, Tally, ...).
type Stream struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// StreamResource is one piece of study material attached to a stream: a
// syllabus page, an old exam paper, a book with a read link, or a video.
type StreamResource struct {
	ID        string         `json:"id"`
	StreamID  string         `json:"streamId"`
	Category  StreamCategory `json:"category"`
	Title     string         `json:"title"`
	URL       string         `json:"url"`
	Image     string         `json:"image,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// StreamDetail pairs a stream with its per-category material counts, which is
// what the stream landing screen renders.
type StreamDetail struct {
	Stream Stream                 `json:"stream"`
	Counts map[StreamCategory]int `json:"counts"`
}

// Admission is a submitted course admission form.
type Admission struct {
	ID            string    `json:"id"`
	Course        string    `json:"course"`
	Name          string    `json:"name"`
	GuardianName  string    `json:"guardianName"`
	DateOfBirth   string    `json:"dob"`
	Medium        string    `json:"medium"`
	Gender        string    `json:"gender"`
	MaritalStatus string    `json:"maritalStatus"`
	Address       string    `json:"address"`
	District      string    `json:"district"`
	City          string    `json:"city"`
	Phone         string    `json:"phone"`
	SubmittedAt   time.Time `json:"submittedAt"`
}
