package web

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/quickhitters/clubhouse/media"
	"github.com/quickhitters/clubhouse/models"
	"github.com/quickhitters/clubhouse/notifier"
	"github.com/quickhitters/clubhouse/roster"
	"github.com/quickhitters/clubhouse/storage"
)

//go:embed templates/*
var templates embed.FS

//go:embed content/*
var content embed.FS

// mdRenderer converts the static club pages (rules, major results) to HTML.
// Raw HTML in the markdown is escaped, not passed through.
var mdRenderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

type Server struct {
	reconciler *roster.Reconciler
	media      *media.Store
	storage    *storage.BoltStore
	notifiers  []notifier.Notifier
	clubName   string
	addr       string
	csrfKey    []byte
	csrfSecure bool
}

func NewServer(reconciler *roster.Reconciler, mediaStore *media.Store, store *storage.BoltStore, clubName, addr string, csrfKey []byte, csrfSecure bool) *Server {
	return &Server{
		reconciler: reconciler,
		media:      mediaStore,
		storage:    store,
		clubName:   clubName,
		addr:       addr,
		csrfKey:    csrfKey,
		csrfSecure: csrfSecure,
	}
}

func (s *Server) SetNotifiers(notifiers []notifier.Notifier) {
	s.notifiers = notifiers
}

func (s *Server) Start() {
	log.Printf("Starting clubhouse web server on http://localhost%s", s.addr)
	if err := http.ListenAndServe(s.addr, s.protect(s.routes())); err != nil {
		log.Printf("Web server error: %v", err)
	}
}

func (s *Server) protect(h http.Handler) http.Handler {
	return csrf.Protect(
		s.csrfKey,
		csrf.Secure(s.csrfSecure),
		csrf.Path("/"),
	)(h)
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleEntrance)
	mux.HandleFunc("/tee-times", s.handleTeeTimes)
	mux.HandleFunc("/tee-times/", s.handleTeeTimeDetail)
	mux.HandleFunc("/sign-up", s.handleSignUp)
	mux.HandleFunc("/withdraw", s.handleWithdraw)
	mux.HandleFunc("/majors", s.handleMarkdownPage("majors", "content/majors.md"))
	mux.HandleFunc("/rules", s.handleMarkdownPage("rules", "content/rules.md"))
	mux.HandleFunc("/historical", s.handleHistorical)
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/subscribe", s.handleSubscribe)
	mux.HandleFunc("/calendar.ics", s.handleCalendar)
	mux.HandleFunc("/api/tee-times", s.handleAPITeeTimes)
	mux.HandleFunc("/api/test-email", s.handleTestEmail)
	mux.Handle("/scorecards/", http.StripPrefix("/scorecards/", http.FileServer(http.Dir(s.media.Dir()))))

	return mux
}

// pageData is the payload every template receives.
type pageData struct {
	ClubName  string
	Active    string
	Error     string
	CSRFField template.HTML

	Slots      []models.TeeSlot
	Slot       models.TeeSlot
	PlayerName string
	Scorecards []models.Scorecard
	Content    template.HTML
}

func (s *Server) newPageData(r *http.Request, active string) pageData {
	return pageData{
		ClubName:  s.clubName,
		Active:    active,
		Error:     r.URL.Query().Get("msg"),
		CSRFField: csrf.TemplateField(r),
	}
}

func (s *Server) render(w http.ResponseWriter, page string, data pageData) {
	tmpl, err := template.ParseFS(templates, "templates/layout.html", "templates/"+page)
	if err != nil {
		http.Error(w, fmt.Sprintf("Template error: %v", err), http.StatusInternalServerError)
		return
	}

	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		http.Error(w, fmt.Sprintf("Template execution error: %v", err), http.StatusInternalServerError)
	}
}

func (s *Server) handleEntrance(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.render(w, "entrance.html", s.newPageData(r, "entrance"))
}

// handleTeeTimes refetches the tee sheet on every page load. A feed failure
// keeps the previous calendar on screen with an inline message.
func (s *Server) handleTeeTimes(w http.ResponseWriter, r *http.Request) {
	data := s.newPageData(r, "teeTimes")

	if err := s.reconciler.Reload(r.Context()); err != nil {
		log.Printf("Error reloading tee sheet: %v", err)
		data.Error = errorMessage(err)
	}

	data.Slots = s.reconciler.Slots()
	s.render(w, "teetimes.html", data)
}

func (s *Server) handleTeeTimeDetail(w http.ResponseWriter, r *http.Request) {
	slotID, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/tee-times/"))
	if err != nil || slotID < 1 {
		http.NotFound(w, r)
		return
	}

	slot, ok := s.reconciler.Slot(slotID)
	if !ok {
		// Stale tab after a reload remapped the positional ids.
		http.NotFound(w, r)
		return
	}

	data := s.newPageData(r, "teeTimes")
	data.Slot = slot
	data.PlayerName = r.URL.Query().Get("name")
	s.render(w, "teetime.html", data)
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	slotID, err := strconv.Atoi(r.FormValue("slot_id"))
	if err != nil {
		http.Error(w, "Slot id is required", http.StatusBadRequest)
		return
	}

	name := r.FormValue("player")

	if err := s.reconciler.SignUp(slotID, name); err != nil {
		redirectSlot(w, r, slotID, errorMessage(err), name)
		return
	}

	// Success clears the name field and any prior error.
	redirectSlot(w, r, slotID, "", "")
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	slotID, err := strconv.Atoi(r.FormValue("slot_id"))
	if err != nil {
		http.Error(w, "Slot id is required", http.StatusBadRequest)
		return
	}

	if err := s.reconciler.Withdraw(slotID, r.FormValue("player")); err != nil {
		redirectSlot(w, r, slotID, errorMessage(err), "")
		return
	}

	redirectSlot(w, r, slotID, "", "")
}

func (s *Server) handleMarkdownPage(active, file string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		md, err := content.ReadFile(file)
		if err != nil {
			http.Error(w, fmt.Sprintf("Content error: %v", err), http.StatusInternalServerError)
			return
		}

		var buf strings.Builder
		if err := mdRenderer.Convert(md, &buf); err != nil {
			http.Error(w, fmt.Sprintf("Markdown error: %v", err), http.StatusInternalServerError)
			return
		}

		data := s.newPageData(r, active)
		data.Content = template.HTML(buf.String())
		s.render(w, "page.html", data)
	}
}

func (s *Server) handleHistorical(w http.ResponseWriter, r *http.Request) {
	cards, err := s.media.List()
	if err != nil {
		http.Error(w, fmt.Sprintf("Error fetching scorecards: %v", err), http.StatusInternalServerError)
		return
	}

	data := s.newPageData(r, "historical")
	data.Scorecards = cards
	s.render(w, "historical.html", data)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Invalid upload", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("scorecard")
	if err != nil {
		http.Redirect(w, r, "/historical?msg="+url.QueryEscape("Please choose a scorecard image."), http.StatusSeeOther)
		return
	}
	defer file.Close()

	card, err := s.media.Save(file, header.Filename, r.FormValue("caption"))
	if err != nil {
		log.Printf("Error saving scorecard: %v", err)
		http.Redirect(w, r, "/historical?msg="+url.QueryEscape("Could not save that image."), http.StatusSeeOther)
		return
	}

	log.Printf("Saved scorecard: %s", card.Name)
	http.Redirect(w, r, "/historical", http.StatusSeeOther)
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	if email == "" || !strings.Contains(email, "@") {
		http.Redirect(w, r, "/tee-times?msg="+url.QueryEscape("Please enter a valid email address."), http.StatusSeeOther)
		return
	}

	recipient := models.Recipient{
		ID:       uuid.NewString(),
		Email:    email,
		IsActive: true,
	}

	if err := s.storage.AddRecipient(recipient); err != nil {
		http.Error(w, fmt.Sprintf("Error saving recipient: %v", err), http.StatusInternalServerError)
		return
	}

	log.Printf("Added email recipient: %s", email)
	http.Redirect(w, r, "/tee-times", http.StatusSeeOther)
}

// handleCalendar serves the whole tee sheet as an iCalendar feed.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)

	now := time.Now()
	for _, slot := range s.reconciler.Slots() {
		if slot.Date.IsZero() {
			continue
		}

		event := cal.AddEvent(fmt.Sprintf("%s@quickhitters", slot.Key))
		event.SetDtStampTime(now)
		event.SetStartAt(slot.Date)
		event.SetEndAt(slot.Date.AddDate(0, 0, 1))
		event.SetSummary(fmt.Sprintf("Tee Time - %s", slot.Course))
		event.SetLocation(slot.Course)
		event.SetDescription(fmt.Sprintf("Tee off %s\nPlayers: %s", slot.Time, strings.Join(slot.Players, ", ")))
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	if err := cal.SerializeTo(w); err != nil {
		log.Printf("Error serializing calendar: %v", err)
	}
}

func (s *Server) handleAPITeeTimes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.reconciler.Slots())
}

func (s *Server) handleTestEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if len(s.notifiers) == 0 {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "error",
			"message": "No notifiers configured",
		})
		return
	}

	testSlot := models.TeeSlot{
		ID:            999,
		Key:           fmt.Sprintf("test-email-%d", time.Now().Unix()),
		Date:          time.Now().Add(24 * time.Hour),
		FormattedDate: time.Now().Add(24 * time.Hour).Format("Mon, Jan 2, 2006"),
		Time:          "7:30 AM",
		Course:        "Test Course",
		Players:       []string{"Test One", "Test Two", "Test Three", "Test Four"},
	}

	event := notifier.Event{
		Action: notifier.ActionSignUp,
		Player: "Test Four",
		Slot:   testSlot,
	}

	for _, n := range s.notifiers {
		if n.GetType() == "email" {
			if err := n.Notify(event); err != nil {
				log.Printf("Test email failed: %v", err)
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]string{
					"status":  "error",
					"message": fmt.Sprintf("Email test failed: %v", err),
				})
				return
			}
		}
	}

	log.Printf("Test email sent successfully")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "success",
		"message": "Test email sent successfully!",
	})
}

func redirectSlot(w http.ResponseWriter, r *http.Request, slotID int, msg, name string) {
	target := fmt.Sprintf("/tee-times/%d", slotID)

	params := url.Values{}
	if msg != "" {
		params.Set("msg", msg)
	}
	if name != "" {
		params.Set("name", name)
	}
	if encoded := params.Encode(); encoded != "" {
		target += "?" + encoded
	}

	http.Redirect(w, r, target, http.StatusSeeOther)
}

// errorMessage flattens the reconciler's errors into the single inline
// message the signup form shows.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, roster.ErrEmptyName):
		return "Please enter your name."
	case errors.Is(err, roster.ErrAlreadySignedUp):
		return "You are already signed up for this tee time."
	case errors.Is(err, roster.ErrSlotFull):
		return "This tee time is already full."
	default:
		return "Could not reach the clubhouse. Please try again."
	}
}
