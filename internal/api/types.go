package api

import "time"

// Role distinguishes the two kinds of accounts the service knows about.
type Role string

const (
	RoleStudent Role = "student"
	RoleMentor  Role = "mentor"
)

// Identity is the authenticated user as reported by the session endpoints.
type Identity struct {
	ID    string `json:"userId"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Participant is one side of a chat thread.
type Participant struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Members holds both participants of a chat, keyed by role.
type Members struct {
	Mentor  Participant `json:"mentor"`
	Student Participant `json:"student"`
}

// CourseRef is the course a chat is scoped to.
type CourseRef struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// LastMessage is the summary the server embeds in a chat listing.
type LastMessage struct {
	ID        string    `json:"_id"`
	Message   string    `json:"message"`
	Sender    string    `json:"sender"`
	CreatedAt time.Time `json:"createdAt"`
}

// Chat is one mentor-student thread, scoped to a course and an opening question.
type Chat struct {
	ID          string       `json:"_id"`
	Members     Members      `json:"members"`
	Course      CourseRef    `json:"courseId"`
	Question    string       `json:"question"`
	LastMessage *LastMessage `json:"lastMessage,omitempty"`
	UnreadCount int          `json:"unreadCount,omitempty"`
}

// Sender identifies who wrote a message.
type Sender struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Message is a single chat message. Seen holds the ids of users that have
// acknowledged it; the server only ever grows this set.
type Message struct {
	ID        string    `json:"_id"`
	ChatID    string    `json:"chatId"`
	Message   string    `json:"message"`
	Sender    Sender    `json:"sender"`
	Files     []string  `json:"files,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Seen      []string  `json:"seen,omitempty"`
}

// Course is a catalog entry mentors teach and students ask about.
type Course struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
