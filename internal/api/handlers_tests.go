package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/water-ml-server/internal/domain"
)

// testRecordRequest is the creation payload. Outcome fields accept the mixed
// encodings seen in the wild (numbers, numeric strings, words) and are
// normalized before storage.
type testRecordRequest struct {
	ParticipantID *string     `json:"participantId"`
	Name          *string     `json:"name"`
	Gender        *string     `json:"gender"`
	Age           *int        `json:"age"`
	Location      *string     `json:"location"`
	Date          *string     `json:"date"`
	UserID        string      `json:"userId"`
	Oncho         interface{} `json:"oncho"`
	Schisto       interface{} `json:"schistosomiasis"`
	LF            interface{} `json:"lf"`
	Helminths     interface{} `json:"helminths"`
}

func (s *Server) handleCreateTest(c *gin.Context) {
	var req testRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid test record payload")
		return
	}
	if req.UserID == "" {
		badRequest(c, "Missing userId")
		return
	}

	rec := &domain.TestRecord{
		ParticipantID:   req.ParticipantID,
		Name:            req.Name,
		Gender:          req.Gender,
		Age:             req.Age,
		Location:        req.Location,
		UserID:          req.UserID,
		Oncho:           domain.NormalizeOutcome(req.Oncho),
		Schistosomiasis: domain.NormalizeOutcome(req.Schisto),
		LF:              domain.NormalizeOutcome(req.LF),
		Helminths:       domain.NormalizeOutcome(req.Helminths),
	}
	if req.Date != nil {
		date, ok := parseRecordDate(*req.Date)
		if !ok {
			badRequest(c, "Invalid date: "+*req.Date)
			return
		}
		rec.Date = date
	}

	if err := s.deps.Records.Create(c.Request.Context(), rec); err != nil {
		s.fail(c, err)
		return
	}
	s.deps.Stats.Invalidate(c.Request.Context())
	c.JSON(http.StatusCreated, gin.H{"data": rec, "status": "success"})
}

func (s *Server) handleGetTest(c *gin.Context) {
	rec, err := s.deps.Records.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, rec)
}

func (s *Server) handleListTests(c *gin.Context) {
	var filter domain.TestRecordFilter
	filter.UserID = c.Query("userId")
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "Invalid limit parameter")
			return
		}
		filter.Limit = n
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "Invalid offset parameter")
			return
		}
		filter.Offset = n
	}

	recs, err := s.deps.Records.List(c.Request.Context(), filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	if recs == nil {
		recs = []*domain.TestRecord{}
	}
	ok(c, recs)
}

// handleUpdateTest applies a partial update. Only keys present in the body
// change; outcome values are normalized like on create.
func (s *Server) handleUpdateTest(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid update payload")
		return
	}

	var upd domain.TestRecordUpdate
	if v, ok := stringField(body, "participantId"); ok {
		upd.ParticipantID = v
	}
	if v, ok := stringField(body, "name"); ok {
		upd.Name = v
	}
	if v, ok := stringField(body, "gender"); ok {
		upd.Gender = v
	}
	if raw, ok := body["age"]; ok {
		f, isNum := raw.(float64)
		if !isNum {
			badRequest(c, "Invalid age")
			return
		}
		age := int(f)
		upd.Age = &age
	}
	if v, ok := stringField(body, "location"); ok {
		upd.Location = v
	}
	if v, ok := stringField(body, "date"); ok && v != nil {
		date, parsed := parseRecordDate(*v)
		if !parsed {
			badRequest(c, "Invalid date: "+*v)
			return
		}
		upd.Date = &date
	}
	if raw, ok := body["oncho"]; ok {
		upd.Oncho = domain.NormalizeOutcome(raw)
	}
	if raw, ok := body["schistosomiasis"]; ok {
		upd.Schistosomiasis = domain.NormalizeOutcome(raw)
	}
	if raw, ok := body["lf"]; ok {
		upd.LF = domain.NormalizeOutcome(raw)
	}
	if raw, ok := body["helminths"]; ok {
		upd.Helminths = domain.NormalizeOutcome(raw)
	}

	rec, err := s.deps.Records.Update(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.deps.Stats.Invalidate(c.Request.Context())
	ok(c, rec)
}

func (s *Server) handleDeleteTest(c *gin.Context) {
	if err := s.deps.Records.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	s.deps.Stats.Invalidate(c.Request.Context())
	ok(c, gin.H{"deleted": c.Param("id")})
}

// handleUploadCSV ingests a multipart CSV file of test records.
func (s *Server) handleUploadCSV(c *gin.Context) {
	userID := c.PostForm("userId")
	if userID == "" {
		badRequest(c, "Missing userId")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "Missing file field")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		badRequest(c, "Unreadable upload")
		return
	}
	defer f.Close()

	result, err := s.deps.Importer.Import(c.Request.Context(), f, userID)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.deps.Stats.Invalidate(c.Request.Context())
	ok(c, result)
}

var recordDateLayouts = []string{"2006-01-02", time.RFC3339}

func parseRecordDate(v string) (time.Time, bool) {
	for _, layout := range recordDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func stringField(body map[string]interface{}, key string) (*string, bool) {
	raw, ok := body[key]
	if !ok {
		return nil, false
	}
	s, isStr := raw.(string)
	if !isStr {
		return nil, true
	}
	return &s, true
}
