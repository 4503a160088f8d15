package main

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"facetrack/internal/attendance"
	"facetrack/internal/auth"
	"facetrack/internal/config"
	"facetrack/internal/employee"
	"facetrack/internal/faceclient"
	"facetrack/internal/metrics"
	"facetrack/internal/report"
	"facetrack/internal/store"
)

type application struct {
	cfg       config.App
	users     *auth.Users
	employees *employee.Repository
	records   *attendance.Repository
	svc       *attendance.Service
	face      *faceclient.Client
	redis     *store.Redis
}

// statusFor maps pipeline sentinels onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, attendance.ErrNotFound),
		errors.Is(err, employee.ErrNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, attendance.ErrAlreadyClosed),
		errors.Is(err, attendance.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, attendance.ErrInvalidOrdering):
		return http.StatusUnprocessableEntity
	case errors.Is(err, auth.ErrBadCredentials):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

// ---- auth ----

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (a *application) register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	usr, err := a.users.Create(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, usr)
}

func (a *application) login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	usr, err := a.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	token, err := auth.Issue(usr.Username, "user", a.cfg.JWTIssuer, a.cfg.JWTSigningKey, a.cfg.AccessTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token.Value,
		"token_type":   "bearer",
		"expires_at":   token.ExpiresAt.Unix(),
	})
}

func (a *application) getUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	usr, err := a.users.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, usr)
}

func (a *application) updateUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	usr, err := a.users.Update(c.Request.Context(), id, req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, usr)
}

func (a *application) deleteUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	if err := a.users.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// ---- employees ----

func (a *application) enrollEmployee(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("name"))
	role := strings.TrimSpace(c.PostForm("role"))
	if name == "" || !employee.ValidRole(role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and role (student|staff) required"})
		return
	}
	image, filename, err := formImage(c, true)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := uuid.NewString()
	enrolled, err := a.face.Enroll(c.Request.Context(), id, name, image)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "face enrollment failed: " + err.Error()})
		return
	}
	faceRef := enrolled.FaceRef
	if archived, aerr := a.archiveImage(id, filename, image); aerr == nil && faceRef == "" {
		faceRef = archived
	}

	emp, err := a.employees.Create(c.Request.Context(), employee.Employee{
		ID:      id,
		Name:    name,
		Role:    role,
		FaceRef: faceRef,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, emp)
}

func (a *application) listEmployees(c *gin.Context) {
	all, err := a.employees.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"employees": all})
}

func (a *application) getEmployee(c *gin.Context) {
	emp, err := a.employees.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, emp)
}

func (a *application) updateEmployee(c *gin.Context) {
	id := c.Param("id")
	name := strings.TrimSpace(c.PostForm("name"))
	role := strings.TrimSpace(c.PostForm("role"))
	if name == "" || !employee.ValidRole(role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and role (student|staff) required"})
		return
	}

	var faceRef string
	image, filename, err := formImage(c, false)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(image) > 0 {
		enrolled, err := a.face.Enroll(c.Request.Context(), id, name, image)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "face enrollment failed: " + err.Error()})
			return
		}
		faceRef = enrolled.FaceRef
		if archived, aerr := a.archiveImage(id, filename, image); aerr == nil && faceRef == "" {
			faceRef = archived
		}
	}

	if err := a.employees.Update(c.Request.Context(), employee.Employee{
		ID:      id,
		Name:    name,
		Role:    role,
		FaceRef: faceRef,
	}); err != nil {
		fail(c, err)
		return
	}
	emp, err := a.employees.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, emp)
}

func (a *application) deleteEmployee(c *gin.Context) {
	id := c.Param("id")
	if err := a.employees.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	// Gallery cleanup is best effort; the directory row is authoritative.
	_ = a.face.Remove(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{"message": "Employee deleted"})
}

// ---- capture & check-in ----

func (a *application) submitCapture(c *gin.Context) {
	image, _, err := captureImage(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	metrics.CapturesTotal.Inc()
	result, err := a.face.Identify(c.Request.Context(), image)
	if err != nil {
		metrics.ClassifierFailures.Inc()
		c.JSON(http.StatusBadGateway, gin.H{"error": "classifier failure: " + err.Error()})
		return
	}

	outcomes := make([]gin.H, 0, len(result.Matches)+result.Unmatched)
	for _, match := range result.Matches {
		metrics.RecognizedTotal.Inc()
		outcomes = append(outcomes, gin.H{"employee_id": match.EmployeeID, "message": "recognized"})
	}
	for i := 0; i < result.Unmatched; i++ {
		metrics.UnknownTotal.Inc()
		outcomes = append(outcomes, gin.H{"message": "unknown"})
	}
	if len(outcomes) == 0 {
		outcomes = append(outcomes, gin.H{"message": "No employees recognized in the image"})
	}
	c.JSON(http.StatusOK, gin.H{"outcomes": outcomes, "faces_detected": result.FacesDetected})
}

func (a *application) checkIn(c *gin.Context) {
	var req struct {
		EmployeeID string `json:"employee_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := a.svc.CheckIn(c.Request.Context(), req.EmployeeID, time.Now().UTC())
	if err != nil {
		fail(c, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	c.JSON(status, res)
}

func (a *application) checkOut(c *gin.Context) {
	rec, err := a.svc.CheckOut(c.Request.Context(), c.Param("id"), time.Now().UTC())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// ---- attendance CRUD ----

func (a *application) listAttendance(c *gin.Context) {
	var f attendance.Filter
	f.EmployeeID = c.Query("employee_id")
	if v := c.Query("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
			return
		}
		f.From = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
			return
		}
		f.To = t
	}
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			f.Limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			f.Offset = parsed
		}
	}
	records, err := a.svc.List(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance": records})
}

func (a *application) getAttendance(c *gin.Context) {
	rec, err := a.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (a *application) updateAttendance(c *gin.Context) {
	var req struct {
		EmployeeID string     `json:"employee_id" binding:"required"`
		WorkDay    string     `json:"work_day" binding:"required"`
		CheckIn    time.Time  `json:"check_in" binding:"required"`
		CheckOut   *time.Time `json:"check_out"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	day, err := time.Parse("2006-01-02", req.WorkDay)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid work_day"})
		return
	}
	rec, err := a.svc.Update(c.Request.Context(), attendance.Record{
		ID:         c.Param("id"),
		EmployeeID: req.EmployeeID,
		WorkDay:    day,
		CheckIn:    req.CheckIn,
		CheckOut:   req.CheckOut,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (a *application) deleteAttendance(c *gin.Context) {
	if err := a.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attendance deleted"})
}

// ---- reports ----

func (a *application) reportWindow(c *gin.Context) (report.Kind, time.Time, time.Time, bool) {
	kind, err := report.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", time.Time{}, time.Time{}, false
	}
	ref := time.Now().UTC()
	if v := c.Query("date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
			return "", time.Time{}, time.Time{}, false
		}
		ref = parsed
	}
	start, end := report.Range(kind, ref)
	return kind, start, end, true
}

func (a *application) buildReport(c *gin.Context) (report.Kind, time.Time, time.Time, []report.Entry, bool) {
	kind, start, end, ok := a.reportWindow(c)
	if !ok {
		return "", time.Time{}, time.Time{}, nil, false
	}
	records, err := a.records.ListRange(c.Request.Context(), start, end)
	if err != nil {
		fail(c, err)
		return "", time.Time{}, time.Time{}, nil, false
	}
	directory, err := a.employees.ByID(c.Request.Context())
	if err != nil {
		fail(c, err)
		return "", time.Time{}, time.Time{}, nil, false
	}
	return kind, start, end, report.Aggregate(records, directory), true
}

func (a *application) getReport(c *gin.Context) {
	kind, start, end, entries, ok := a.buildReport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"kind":         kind,
		"period_start": start.Format("2006-01-02"),
		"period_end":   end.Format("2006-01-02"),
		"entries":      entries,
	})
}

func (a *application) exportReport(c *gin.Context) {
	kind, start, end, entries, ok := a.buildReport(c)
	if !ok {
		return
	}
	workbook, err := report.Excel(kind, start, end, entries)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	filename := string(kind) + "-report-" + start.Format("2006-01-02") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", workbook)
}

func (a *application) todayStats(c *gin.Context) {
	day := time.Now().UTC().Format("2006-01-02")
	summary, err := a.redis.Client.HGetAll(c.Request.Context(), "facetrack:summary:"+day).Result()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "summary unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"day": day, "summary": summary})
}

// ---- helpers ----

// formImage pulls the enrollment photo from a multipart form.
func formImage(c *gin.Context, required bool) ([]byte, string, error) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		if required {
			return nil, "", errors.New("file field required")
		}
		return nil, "", nil
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", errors.New("read file failed")
	}
	return data, header.Filename, nil
}

// captureImage accepts either a multipart file or a JSON body with a
// base64 image, so both browsers and the capture agent can post frames.
func captureImage(c *gin.Context) ([]byte, string, error) {
	if strings.Contains(c.ContentType(), "multipart/form-data") {
		return formImage(c, true)
	}
	var body struct {
		Image string `json:"image" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		return nil, "", errors.New(`provide {"image": "<base64>"} or a multipart file`)
	}
	data, err := base64.StdEncoding.DecodeString(body.Image)
	if err != nil {
		return nil, "", errors.New("invalid base64 image")
	}
	return data, "", nil
}

// archiveImage keeps the enrollment photo on disk next to the service.
func (a *application) archiveImage(employeeID, filename string, image []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	path := filepath.Join(a.cfg.UploadDir, employeeID+ext)
	if err := os.WriteFile(path, image, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
