package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/notewall/backend/internal/notes"
	"github.com/notewall/backend/internal/users"
)

func (h *httpHandler) handleHome(c *gin.Context) {
	c.Redirect(http.StatusFound, "/register")
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) handleRegisterForm(c *gin.Context) {
	c.HTML(http.StatusOK, "register.tmpl", gin.H{
		"Flash":  popFlash(c),
		"Errors": map[string]string{},
		"Form":   map[string]string{},
	})
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	input := users.RegisterInput{
		Username:  c.PostForm("username"),
		Password:  c.PostForm("password"),
		Email:     c.PostForm("email"),
		FirstName: c.PostForm("first_name"),
		LastName:  c.PostForm("last_name"),
	}

	user, err := h.usersService.Register(c.Request.Context(), input)
	var validationErr *users.ValidationError
	switch {
	case errors.As(err, &validationErr):
		h.renderRegisterForm(c, input, validationErr.Fields)
		return
	case errors.Is(err, users.ErrDuplicateUsername):
		h.renderRegisterForm(c, input, map[string]string{"username": "Username is already taken"})
		return
	case err != nil:
		h.internalError(c, "registration failed", err)
		return
	}

	// Registration implies login.
	if err := h.startSession(c, user.Username); err != nil {
		h.internalError(c, "session start failed", err)
		return
	}
	c.Redirect(http.StatusFound, "/users/"+user.Username)
}

func (h *httpHandler) renderRegisterForm(c *gin.Context, input users.RegisterInput, fieldErrors map[string]string) {
	c.HTML(http.StatusOK, "register.tmpl", gin.H{
		"Flash":  popFlash(c),
		"Errors": fieldErrors,
		"Form": map[string]string{
			"username":   input.Username,
			"email":      input.Email,
			"first_name": input.FirstName,
			"last_name":  input.LastName,
		},
	})
}

func (h *httpHandler) handleLoginForm(c *gin.Context) {
	c.HTML(http.StatusOK, "login.tmpl", gin.H{
		"Flash": popFlash(c),
		"Form":  map[string]string{},
	})
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	user, err := h.usersService.Authenticate(c.Request.Context(), username, password)
	if err != nil {
		h.internalError(c, "authentication failed", err)
		return
	}
	if user == nil {
		// One generic message for unknown user and wrong password alike.
		c.HTML(http.StatusOK, "login.tmpl", gin.H{
			"Flash": popFlash(c),
			"Error": "Bad name/password",
			"Form":  map[string]string{"username": username},
		})
		return
	}

	if err := h.startSession(c, user.Username); err != nil {
		h.internalError(c, "session start failed", err)
		return
	}
	c.Redirect(http.StatusFound, "/users/"+user.Username)
}

func (h *httpHandler) handleLogout(c *gin.Context) {
	h.endSession(c)
	c.Redirect(http.StatusFound, "/")
}

func (h *httpHandler) handleUserPage(c *gin.Context) {
	username := c.Param("username")

	user, err := h.usersService.Get(c.Request.Context(), username)
	if errors.Is(err, users.ErrUserNotFound) {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	if err != nil {
		h.internalError(c, "user lookup failed", err)
		return
	}

	ownedNotes, err := h.notesService.ListByOwner(c.Request.Context(), username)
	if err != nil {
		h.internalError(c, "notes listing failed", err)
		return
	}

	c.HTML(http.StatusOK, "user_page.tmpl", gin.H{
		"Flash": popFlash(c),
		"User":  user,
		"Notes": ownedNotes,
	})
}

func (h *httpHandler) handleDeleteUserForm(c *gin.Context) {
	c.HTML(http.StatusOK, "user_delete.tmpl", gin.H{
		"Flash":    popFlash(c),
		"Username": c.Param("username"),
	})
}

func (h *httpHandler) handleDeleteUser(c *gin.Context) {
	username := c.Param("username")

	err := h.usersService.Delete(c.Request.Context(), username)
	if errors.Is(err, users.ErrUserNotFound) {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	if err != nil {
		h.internalError(c, "user delete failed", err)
		return
	}

	h.endSession(c)
	setFlash(c, "Account deleted.")
	c.Redirect(http.StatusFound, "/")
}

func (h *httpHandler) handleAddNoteForm(c *gin.Context) {
	c.HTML(http.StatusOK, "note_form.tmpl", gin.H{
		"Flash":   popFlash(c),
		"Heading": "Add note",
		"Action":  "/users/" + c.Param("username") + "/notes/add",
		"Errors":  map[string]string{},
		"Form":    map[string]string{},
	})
}

func (h *httpHandler) handleAddNote(c *gin.Context) {
	username := c.Param("username")
	input := notes.NoteInput{
		Title:   c.PostForm("title"),
		Content: c.PostForm("content"),
	}

	_, err := h.notesService.Create(c.Request.Context(), username, input)
	if fieldErrors := noteFieldErrors(err); len(fieldErrors) > 0 {
		c.HTML(http.StatusOK, "note_form.tmpl", gin.H{
			"Flash":   popFlash(c),
			"Heading": "Add note",
			"Action":  "/users/" + username + "/notes/add",
			"Errors":  fieldErrors,
			"Form":    map[string]string{"title": input.Title, "content": input.Content},
		})
		return
	}
	if err != nil {
		h.internalError(c, "note create failed", err)
		return
	}
	c.Redirect(http.StatusFound, "/users/"+username)
}

func (h *httpHandler) handleUpdateNoteForm(c *gin.Context) {
	note := contextNote(c)
	if note == nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	c.HTML(http.StatusOK, "note_form.tmpl", gin.H{
		"Flash":   popFlash(c),
		"Heading": "Update note",
		"Action":  "/notes/" + note.ID + "/update",
		"Errors":  map[string]string{},
		"Form":    map[string]string{"title": note.Title, "content": note.Content},
	})
}

func (h *httpHandler) handleUpdateNote(c *gin.Context) {
	note := contextNote(c)
	if note == nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	input := notes.NoteInput{
		Title:   c.PostForm("title"),
		Content: c.PostForm("content"),
	}

	_, err := h.notesService.Update(c.Request.Context(), notes.NoteID(note.ID), input)
	if fieldErrors := noteFieldErrors(err); len(fieldErrors) > 0 {
		c.HTML(http.StatusOK, "note_form.tmpl", gin.H{
			"Flash":   popFlash(c),
			"Heading": "Update note",
			"Action":  "/notes/" + note.ID + "/update",
			"Errors":  fieldErrors,
			"Form":    map[string]string{"title": input.Title, "content": input.Content},
		})
		return
	}
	if errors.Is(err, notes.ErrNoteNotFound) {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	if err != nil {
		h.internalError(c, "note update failed", err)
		return
	}
	c.Redirect(http.StatusFound, "/users/"+note.Owner)
}

func (h *httpHandler) handleDeleteNoteForm(c *gin.Context) {
	note := contextNote(c)
	if note == nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	c.HTML(http.StatusOK, "note_delete.tmpl", gin.H{
		"Flash": popFlash(c),
		"Note":  note,
	})
}

func (h *httpHandler) handleDeleteNote(c *gin.Context) {
	note := contextNote(c)
	if note == nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	err := h.notesService.Delete(c.Request.Context(), notes.NoteID(note.ID))
	if errors.Is(err, notes.ErrNoteNotFound) {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	if err != nil {
		h.internalError(c, "note delete failed", err)
		return
	}
	c.Redirect(http.StatusFound, "/users/"+note.Owner)
}

func (h *httpHandler) startSession(c *gin.Context, username string) error {
	token, expiresIn, err := h.sessions.Issue(username)
	if err != nil {
		return err
	}
	c.SetCookie(h.validator.CookieName(), token, int(expiresIn), "/", "", false, true)
	return nil
}

// endSession clears the session cookie. Clearing an absent cookie is a
// no-op, so logout is idempotent.
func (h *httpHandler) endSession(c *gin.Context) {
	c.SetCookie(h.validator.CookieName(), "", -1, "/", "", false, true)
}

func (h *httpHandler) internalError(c *gin.Context, message string, err error) {
	h.logger.Error(message, zap.Error(err))
	c.String(http.StatusInternalServerError, "internal error")
	c.Abort()
}

func noteFieldErrors(err error) map[string]string {
	fieldErrors := map[string]string{}
	if errors.Is(err, notes.ErrInvalidTitle) {
		fieldErrors["title"] = "Title is required"
	}
	if errors.Is(err, notes.ErrInvalidContent) {
		fieldErrors["content"] = "Content is required"
	}
	return fieldErrors
}
