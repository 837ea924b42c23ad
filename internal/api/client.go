package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// Client talks to the remote messaging API. Authentication is a session
// cookie; the jar is shared with the realtime dialer so both carry the same
// credentials.
type Client struct {
	base string
	jar  http.CookieJar
	http *http.Client
}

// New creates a client for the API rooted at base (e.g. "https://host/api/v1").
func New(base string, timeout time.Duration) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	return &Client{
		base: strings.TrimRight(base, "/"),
		jar:  jar,
		http: &http.Client{Jar: jar, Timeout: timeout},
	}, nil
}

// Jar exposes the session cookie jar for the realtime dialer.
func (c *Client) Jar() http.CookieJar { return c.jar }

// Me returns the identity behind the current session cookie. A server
// rejection here means "not logged in", not a fault.
func (c *Client) Me(ctx context.Context) (*Identity, error) {
	var out struct {
		UserData Identity `json:"userData"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/user/me", nil, &out); err != nil {
		return nil, err
	}
	return &out.UserData, nil
}

// Login authenticates with email and password and returns the identity.
func (c *Client) Login(ctx context.Context, email, password string) (*Identity, error) {
	body := map[string]string{"email": email, "password": password}
	var out struct {
		Data struct {
			UserData Identity `json:"userData"`
		} `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/user/login", body, &out); err != nil {
		return nil, err
	}
	return &out.Data.UserData, nil
}

// Signup registers a new account. The session is not established; the user
// logs in afterwards.
func (c *Client) Signup(ctx context.Context, name, email, password, confirmPassword string, role Role) error {
	body := map[string]string{
		"name":            name,
		"email":           email,
		"password":        password,
		"confirmPassword": confirmPassword,
		"role":            string(role),
	}
	return c.doJSON(ctx, http.MethodPost, "/user/signup", body, nil)
}

// Logout invalidates the remote session.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/user/logout", nil, nil)
}

// UserByID fetches another user's public profile.
func (c *Client) UserByID(ctx context.Context, id string) (*Sender, error) {
	var out struct {
		UserData Sender `json:"userData"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/user/byId/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.UserData, nil
}

// Chats lists the caller's chat threads. Pages start at 1.
func (c *Client) Chats(ctx context.Context, page int) ([]Chat, error) {
	if page < 1 {
		page = 1
	}
	var out struct {
		Chats []Chat `json:"chats"`
	}
	path := fmt.Sprintf("/chat/getAllChats?page=%d", page)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Chats, nil
}

// AccessChat creates (or returns the existing) thread between the caller and
// the mentor teaching the given course, opened with a question.
func (c *Client) AccessChat(ctx context.Context, mentorEmail, courseID, question string) (*Chat, error) {
	// The server's access-chat route reads the mentor email from the
	// studentId field.
	body := map[string]string{
		"studentId": mentorEmail,
		"courseId":  courseID,
		"question":  question,
	}
	var out struct {
		ChatData Chat `json:"chatData"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/chat/access-chat", body, &out); err != nil {
		return nil, err
	}
	return &out.ChatData, nil
}

// Messages fetches the full history of one chat.
func (c *Client) Messages(ctx context.Context, chatID string) ([]Message, error) {
	var out struct {
		Messages []Message `json:"messages"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/message/get-messages/"+url.PathEscape(chatID), nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// Attachment is a file to include with a message.
type Attachment struct {
	Name    string
	Content io.Reader
}

// SendMessage posts a message with optional attachments as multipart form
// data. The created message is not returned; it arrives over the realtime
// channel as an echo.
func (c *Client) SendMessage(ctx context.Context, chatID, message string, files []Attachment) error {
	form, contentType, err := messageForm(chatID, message, files)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/message/sendMessage", form)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req, nil)
}

// UploadFiles uploads attachments ahead of a realtime send and returns their
// stored URLs.
func (c *Client) UploadFiles(ctx context.Context, files []Attachment) ([]string, error) {
	form, contentType, err := messageForm("", "", files)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/message/upload-files", form)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	var out struct {
		Files []string `json:"files"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Files, nil
}

// Courses lists the course catalog.
func (c *Client) Courses(ctx context.Context) ([]Course, error) {
	var out struct {
		Data []Course `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/course/all", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// CreateCourse adds a course to the catalog. Mentor-only on the server side.
func (c *Client) CreateCourse(ctx context.Context, name, description string) (*Course, error) {
	body := map[string]string{"name": name, "description": description}
	var out struct {
		Data Course `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/course/create", body, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// CourseByID fetches a single course.
func (c *Client) CourseByID(ctx context.Context, id string) (*Course, error) {
	var out struct {
		Data Course `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/course/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func messageForm(chatID, message string, files []Attachment) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	if message != "" || chatID != "" {
		if err := w.WriteField("message", message); err != nil {
			return nil, "", fmt.Errorf("write form field: %w", err)
		}
		if err := w.WriteField("chatId", chatID); err != nil {
			return nil, "", fmt.Errorf("write form field: %w", err)
		}
	}

	for _, f := range files {
		part, err := w.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, "", fmt.Errorf("create form file %s: %w", f.Name, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, "", fmt.Errorf("copy attachment %s: %w", f.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finish form: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

// do executes a request and maps the outcome onto the error taxonomy: a
// transport failure wraps ErrUnreachable, a non-2xx response becomes an
// *Error carrying the server's message.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, ErrUnreachable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var rejection struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&rejection)
		return &Error{Status: resp.StatusCode, Message: rejection.Message}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", req.URL.Path, err)
	}
	return nil
}
