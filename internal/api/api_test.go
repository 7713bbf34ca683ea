package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"schoolattend/internal/attendance"
	"schoolattend/internal/auth"
	"schoolattend/internal/classroom"
	"schoolattend/internal/cloudinary"
	"schoolattend/internal/memstore"
	"schoolattend/internal/metrics"
	"schoolattend/internal/school"
	"schoolattend/internal/student"
	"schoolattend/internal/subject"
	"schoolattend/internal/teacher"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUploader struct {
	got []byte
}

func (f *fakeUploader) Upload(_ context.Context, file io.Reader, filename string) (*cloudinary.UploadResult, error) {
	b, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	f.got = b
	return &cloudinary.UploadResult{PublicID: filename, SecureURL: "https://cdn.test/" + filename}, nil
}

type testServer struct {
	t        *testing.T
	router   *gin.Engine
	uploader *fakeUploader
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	tokens, err := auth.NewTokens("test-secret", "schoolattend-test", time.Hour)
	require.NoError(t, err)
	m := metrics.New("test", prometheus.NewRegistry())

	mem := memstore.New()
	authn := auth.NewAuthenticator(tokens, auth.NewBcryptHasher(bcrypt.MinCost), map[auth.Role]auth.AccountStore{
		auth.RoleSchool:  mem.Schools(),
		auth.RoleTeacher: mem.Teachers(),
		auth.RoleStudent: mem.Students(),
	}, m)
	up := &fakeUploader{}

	router := NewRouter(Deps{
		Metrics:    m,
		Tokens:     tokens,
		Authn:      authn,
		Schools:    school.NewService(mem.Schools(), authn),
		Teachers:   teacher.NewService(mem.Teachers(), authn),
		Students:   student.NewService(mem.Students(), authn),
		Classes:    classroom.NewService(mem.Classes()),
		Subjects:   subject.NewService(mem.Subjects()),
		Attendance: attendance.NewService(mem.Attendance()),
		Uploader:   up,
		Health: map[string]HealthCheck{
			"store": func(context.Context) bool { return true },
		},
		RequestTimeout: 5 * time.Second,
	})
	return &testServer{t: t, router: router, uploader: up}
}

type response struct {
	Code    int
	Header  http.Header
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(method, path, token string, body any) response {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	res := response{Code: w.Code, Header: w.Header()}
	if w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	}
	return res
}

func (r response) into(t *testing.T, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Data, dst))
}

func (s *testServer) registerSchool(name, email string) {
	s.t.Helper()
	res := s.do(http.MethodPost, "/api/school/register", "", gin.H{
		"school_name": name, "email": email, "phone": "0123456789", "admin_name": "Admin", "password": "secret1",
	})
	require.Equal(s.t, http.StatusCreated, res.Code, res.Message)
}

func (s *testServer) login(role, email, password string) string {
	s.t.Helper()
	res := s.do(http.MethodPost, "/api/"+role+"/login", "", gin.H{"email": email, "password": password})
	require.Equal(s.t, http.StatusOK, res.Code, res.Message)
	var sess struct {
		Token string `json:"token"`
	}
	res.into(s.t, &sess)
	require.Equal(s.t, sess.Token, res.Header.Get("Authorization"))
	return sess.Token
}

func (s *testServer) create(path, token string, body any) string {
	s.t.Helper()
	res := s.do(http.MethodPost, path, token, body)
	require.Equal(s.t, http.StatusCreated, res.Code, res.Message)
	var created struct {
		ID string `json:"id"`
	}
	res.into(s.t, &created)
	return created.ID
}

// fixture is two schools; school A has a class, a subject, a teacher and a student.
type fixture struct {
	*testServer
	schoolA, schoolB  string
	classID, class2ID string
	subjectID         string
	teacherID         string
	studentID         string
	teacherTok        string
	studentTok        string
}

func newFixture(t *testing.T) *fixture {
	s := newTestServer(t)
	s.registerSchool("Alpha School", "alpha@school.test")
	s.registerSchool("Beta School", "beta@school.test")
	f := &fixture{
		testServer: s,
		schoolA:    s.login("school", "alpha@school.test", "secret1"),
		schoolB:    s.login("school", "beta@school.test", "secret1"),
	}
	f.classID = s.create("/api/class/create", f.schoolA, gin.H{"class_text": "Grade One", "class_number": 1})
	f.class2ID = s.create("/api/class/create", f.schoolA, gin.H{"class_text": "Grade Two", "class_number": 2})
	f.subjectID = s.create("/api/subject/create", f.schoolA, gin.H{"subject_name": "Maths", "subject_codename": "MTH"})
	f.teacherID = s.create("/api/teacher/register", f.schoolA, gin.H{
		"email": "ann@alpha.test", "name": "Ann", "qualification": "BSc", "age": 30, "gender": "Female", "password": "secret1",
	})
	f.studentID = s.create("/api/student/register", f.schoolA, gin.H{
		"email": "bo@alpha.test", "name": "Bo", "student_class": f.classID, "age": 10, "gender": "Male",
		"guardian": "Cy", "guardian_phone": "0123456789", "password": "secret1",
	})
	f.teacherTok = s.login("teacher", "ann@alpha.test", "secret1")
	f.studentTok = s.login("student", "bo@alpha.test", "secret1")
	return f
}

func TestSchoolRegistration(t *testing.T) {
	s := newTestServer(t)
	body := gin.H{
		"school_name": "Alpha School", "email": "Alpha@School.test", "phone": "0123456789",
		"admin_name": "Admin", "password": "secret1",
	}

	res := s.do(http.MethodPost, "/api/school/register", "", body)
	require.Equal(t, http.StatusCreated, res.Code)
	assert.True(t, res.Success)
	var created map[string]any
	res.into(t, &created)
	assert.Equal(t, "alpha@school.test", created["email"])
	assert.NotContains(t, created, "password")
	assert.NotContains(t, created, "password_hash")

	res = s.do(http.MethodPost, "/api/school/register", "", body)
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.False(t, res.Success)
	assert.Equal(t, "Email is already registered.", res.Message)

	res = s.do(http.MethodGet, "/api/school/get-all", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	var all []map[string]any
	res.into(t, &all)
	require.Len(t, all, 1)
	assert.NotContains(t, all[0], "password_hash")
}

func TestValidationMessages(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name    string
		body    any
		message string
	}{
		{"bad email", gin.H{"school_name": "Alpha", "email": "nope", "phone": "0123456789", "admin_name": "A", "password": "secret1"}, "email must be a valid email address"},
		{"short password", gin.H{"school_name": "Alpha", "email": "a@b.test", "phone": "0123456789", "admin_name": "A", "password": "123"}, "password must be at least 6 characters in length"},
		{"wrong type", gin.H{"school_name": 5}, "school_name has the wrong type."},
		{"empty body", nil, "Request body is required."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.do(http.MethodPost, "/api/school/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, res.Code)
			assert.False(t, res.Success)
			assert.Equal(t, tt.message, res.Message)
		})
	}
}

func TestLoginFailuresAreGeneric(t *testing.T) {
	s := newTestServer(t)
	s.registerSchool("Alpha School", "alpha@school.test")

	for _, body := range []gin.H{
		{"email": "alpha@school.test", "password": "wrong-password"},
		{"email": "nobody@school.test", "password": "secret1"},
	} {
		res := s.do(http.MethodPost, "/api/school/login", "", body)
		assert.Equal(t, http.StatusUnauthorized, res.Code)
		assert.Equal(t, "Invalid email or password.", res.Message)
	}
}

func TestAuthorizationGate(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name     string
		method   string
		path     string
		token    string
		body     any
		wantCode int
	}{
		{"no token", http.MethodGet, "/api/class/all", "", nil, http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/class/all", "not-a-jwt", nil, http.StatusUnauthorized},
		{"teacher on school route", http.MethodPost, "/api/class/create", f.teacherTok, gin.H{"class_text": "X", "class_number": 9}, http.StatusForbidden},
		{"student on school route", http.MethodGet, "/api/teacher/all", f.studentTok, nil, http.StatusForbidden},
		{"teacher reads self", http.MethodGet, "/api/teacher/fetch/" + f.teacherID, f.teacherTok, nil, http.StatusOK},
		{"teacher fetch-single", http.MethodGet, "/api/teacher/fetch-single", f.teacherTok, nil, http.StatusOK},
		{"student reads self", http.MethodGet, "/api/student/fetch/" + f.studentID, f.studentTok, nil, http.StatusOK},
		{"student fetch-single", http.MethodGet, "/api/student/fetch-single", f.studentTok, nil, http.StatusOK},
		{"teacher reads student", http.MethodGet, "/api/student/fetch/" + f.studentID, f.teacherTok, nil, http.StatusForbidden},
		{"student reads own attendance", http.MethodGet, "/api/attendance/student/" + f.studentID, f.studentTok, nil, http.StatusOK},
		{"student moves class", http.MethodPatch, "/api/student/update", f.studentTok, gin.H{"student_class": f.class2ID}, http.StatusForbidden},
		{"school reads teacher", http.MethodGet, "/api/teacher/fetch/" + f.teacherID, f.schoolA, nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.do(tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantCode, res.Code, res.Message)
			assert.Equal(t, tt.wantCode < 300, res.Success)
		})
	}
}

func TestTenantIsolation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"fetch student", http.MethodGet, "/api/student/fetch/" + f.studentID, nil},
		{"update student", http.MethodPatch, "/api/student/update/" + f.studentID, gin.H{"name": "Hacked"}},
		{"delete student", http.MethodDelete, "/api/student/delete/" + f.studentID, nil},
		{"fetch teacher", http.MethodGet, "/api/teacher/fetch/" + f.teacherID, nil},
		{"delete teacher", http.MethodDelete, "/api/teacher/delete/" + f.teacherID, nil},
		{"update class", http.MethodPatch, "/api/class/update/" + f.classID, gin.H{"class_text": "Mine"}},
		{"delete subject", http.MethodDelete, "/api/subject/delete/" + f.subjectID, nil},
		{"student attendance", http.MethodGet, "/api/attendance/student/" + f.studentID, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.do(tt.method, tt.path, f.schoolB, tt.body)
			assert.Equal(t, http.StatusNotFound, res.Code)
			assert.False(t, res.Success)
		})
	}

	// school B cannot enrol into school A's class either
	res := f.do(http.MethodPost, "/api/student/register", f.schoolB, gin.H{
		"email": "eve@beta.test", "name": "Eve", "student_class": f.classID, "age": 10, "gender": "Female",
		"guardian": "Cy", "guardian_phone": "0123456789", "password": "secret1",
	})
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "Class not found.", res.Message)

	// nothing changed for school A
	res = f.do(http.MethodGet, "/api/student/fetch/"+f.studentID, f.schoolA, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var st map[string]any
	res.into(t, &st)
	assert.Equal(t, "Bo", st["name"])
}

func TestSameEmailAcrossSchools(t *testing.T) {
	f := newFixture(t)
	body := gin.H{"email": "ann@alpha.test", "name": "Ann", "qualification": "MSc", "age": 40, "gender": "Female", "password": "other-pass"}

	res := f.do(http.MethodPost, "/api/teacher/register", f.schoolA, body)
	assert.Equal(t, http.StatusConflict, res.Code)

	res = f.do(http.MethodPost, "/api/teacher/register", f.schoolB, body)
	require.Equal(t, http.StatusCreated, res.Code)

	// the password decides which school's account signs in
	tok := f.login("teacher", "ann@alpha.test", "other-pass")
	res = f.do(http.MethodGet, "/api/teacher/fetch-single", tok, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var tc map[string]any
	res.into(t, &tc)
	assert.Equal(t, "MSc", tc["qualification"])
}

func TestAttendanceCheck(t *testing.T) {
	f := newFixture(t)

	res := f.do(http.MethodGet, "/api/attendance/check/"+f.classID, f.schoolA, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"attendanceTaken":false}`, string(res.Data))

	mark := gin.H{"student_id": f.studentID, "class_id": f.classID, "subject_id": f.subjectID, "status": "Present"}
	res = f.do(http.MethodPost, "/api/attendance/mark", f.schoolA, mark)
	require.Equal(t, http.StatusCreated, res.Code, res.Message)

	res = f.do(http.MethodPost, "/api/attendance/mark", f.schoolA, mark)
	assert.Equal(t, http.StatusConflict, res.Code)

	// the student is not enrolled in class 2
	res = f.do(http.MethodPost, "/api/attendance/mark", f.schoolA, gin.H{
		"student_id": f.studentID, "class_id": f.class2ID, "subject_id": f.subjectID, "status": "Present",
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Student is not enrolled in this class.", res.Message)

	res = f.do(http.MethodGet, "/api/attendance/check/"+f.classID, f.schoolA, nil)
	assert.JSONEq(t, `{"attendanceTaken":true}`, string(res.Data))
	res = f.do(http.MethodGet, "/api/attendance/check/"+f.class2ID, f.schoolA, nil)
	assert.JSONEq(t, `{"attendanceTaken":false}`, string(res.Data))
	res = f.do(http.MethodGet, "/api/attendance/check/"+f.classID, f.schoolB, nil)
	assert.JSONEq(t, `{"attendanceTaken":false}`, string(res.Data))

	res = f.do(http.MethodGet, "/api/attendance/student/"+f.studentID, f.studentTok, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var records []map[string]any
	res.into(t, &records)
	require.Len(t, records, 1)
	assert.Equal(t, "Maths", records[0]["subject_name"])

	res = f.do(http.MethodPost, "/api/attendance/mark", f.schoolA, gin.H{
		"student_id": f.studentID, "class_id": f.classID, "subject_id": f.subjectID, "status": "Late",
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = f.do(http.MethodPost, "/api/attendance/mark", f.schoolA, gin.H{
		"student_id": f.studentID, "class_id": f.classID, "subject_id": f.subjectID, "date": "2024-05-01",
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Message)
	res = f.do(http.MethodPost, "/api/attendance/mark", f.schoolA, gin.H{
		"student_id": f.studentID, "class_id": f.classID, "subject_id": f.subjectID, "date": "May 1st",
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "date must be an RFC 3339 timestamp or YYYY-MM-DD.", res.Message)
}

func TestClassLifecycle(t *testing.T) {
	f := newFixture(t)

	res := f.do(http.MethodPost, "/api/class/create", f.schoolA, gin.H{"class_text": "Again", "class_number": 1})
	assert.Equal(t, http.StatusConflict, res.Code)
	res = f.do(http.MethodPost, "/api/class/create", f.schoolB, gin.H{"class_text": "One", "class_number": 1})
	assert.Equal(t, http.StatusCreated, res.Code)

	res = f.do(http.MethodPatch, "/api/class/update/"+f.class2ID, f.schoolA, gin.H{"attendee": f.teacherID})
	require.Equal(t, http.StatusOK, res.Code, res.Message)

	res = f.do(http.MethodDelete, "/api/class/delete/"+f.classID, f.schoolA, nil)
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, "This class is already in use.", res.Message)

	res = f.do(http.MethodDelete, "/api/teacher/delete/"+f.teacherID, f.schoolA, nil)
	require.Equal(t, http.StatusOK, res.Code)
	res = f.do(http.MethodGet, "/api/class/all", f.schoolA, nil)
	var classes []map[string]any
	res.into(t, &classes)
	require.Len(t, classes, 2)
	assert.EqualValues(t, 1, classes[0]["class_number"])
	assert.NotContains(t, classes[1], "attendee")

	res = f.do(http.MethodDelete, "/api/student/delete/"+f.studentID, f.schoolA, nil)
	require.Equal(t, http.StatusOK, res.Code)
	res = f.do(http.MethodDelete, "/api/class/delete/"+f.classID, f.schoolA, nil)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestSubjectUniqueness(t *testing.T) {
	f := newFixture(t)
	res := f.do(http.MethodPost, "/api/subject/create", f.schoolA, gin.H{"subject_name": "Algebra", "subject_codename": "MTH"})
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, "Subject with this name or codename already exists.", res.Message)

	res = f.do(http.MethodGet, "/api/subject/all", f.schoolA, nil)
	var subjects []map[string]any
	res.into(t, &subjects)
	assert.Len(t, subjects, 1)
}

func TestSearchFilters(t *testing.T) {
	f := newFixture(t)
	res := f.do(http.MethodGet, "/api/teacher/all?search=AN", f.schoolA, nil)
	var teachers []map[string]any
	res.into(t, &teachers)
	assert.Len(t, teachers, 1)

	res = f.do(http.MethodGet, "/api/student/all?student_class="+f.class2ID, f.schoolA, nil)
	var students []map[string]any
	res.into(t, &students)
	assert.Empty(t, students)
}

func TestUpload(t *testing.T) {
	f := newFixture(t)
	res := f.do(http.MethodPost, "/api/upload", f.schoolA, gin.H{"data": "data:image/png;base64,aGVsbG8="})
	require.Equal(t, http.StatusCreated, res.Code, res.Message)
	assert.Equal(t, "hello", string(f.uploader.got))

	var out map[string]string
	res.into(t, &out)
	assert.True(t, strings.HasPrefix(out["url"], "https://cdn.test/"))

	res = f.do(http.MethodPost, "/api/upload", f.teacherTok, gin.H{"data": "aGVsbG8="})
	assert.Equal(t, http.StatusForbidden, res.Code)

	f.uploader.got = nil
	for _, data := range []string{"data:image/png;base64,!!!not-base64!!!", "data:image/png;base64,"} {
		res = f.do(http.MethodPost, "/api/upload", f.schoolA, gin.H{"data": data})
		assert.Equal(t, http.StatusBadRequest, res.Code, data)
		assert.Equal(t, "Image data is not valid base64.", res.Message)
	}
	assert.Nil(t, f.uploader.got)
}

func TestHealthAndUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"checks":{"store":true}}`, w.Body.String())

	res := s.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.False(t, res.Success)
}
