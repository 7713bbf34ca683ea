package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"schoolattend/internal/apperr"
	"schoolattend/internal/auth"
	"schoolattend/internal/school"
	"schoolattend/internal/student"
	"schoolattend/internal/teacher"
)

var errForbidden = apperr.Forbidden("Access denied. Insufficient permissions.")

type loginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	SchoolID string `json:"school_id"`
}

type sessionUser struct {
	ID       string    `json:"id"`
	SchoolID string    `json:"schoolId,omitempty"`
	Name     string    `json:"name"`
	Role     auth.Role `json:"role"`
}

type sessionView struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      sessionUser `json:"user"`
}

func (h *handler) login(role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in loginInput
		if !bindJSON(c, &in) {
			return
		}
		sess, err := h.Authn.Login(c.Request.Context(), auth.Credentials{
			Role: role, Email: in.Email, Password: in.Password, SchoolID: in.SchoolID,
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.Header("Authorization", sess.Token)
		ok(c, http.StatusOK, "Login successful.", sessionView{
			Token:     sess.Token,
			ExpiresAt: sess.ExpiresAt,
			User: sessionUser{
				ID:       sess.Claims.PrincipalID,
				SchoolID: sess.Claims.SchoolID,
				Name:     sess.Claims.Name,
				Role:     sess.Claims.Role,
			},
		})
	}
}

// schools

func (h *handler) registerSchool(c *gin.Context) {
	var in school.RegisterInput
	if !bindJSON(c, &in) {
		return
	}
	sc, err := h.Schools.Register(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "School registered successfully.", sc)
}

func (h *handler) listSchools(c *gin.Context) {
	schools, err := h.Schools.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", schools)
}

func (h *handler) getOwnSchool(c *gin.Context) {
	sc, err := h.Schools.Get(c.Request.Context(), tenant(c).PrincipalID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", sc)
}

func (h *handler) updateOwnSchool(c *gin.Context) {
	var in school.UpdateInput
	if !bindJSON(c, &in) {
		return
	}
	sc, err := h.Schools.Update(c.Request.Context(), tenant(c).PrincipalID, in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "School updated successfully.", sc)
}

// teachers

func (h *handler) registerTeacher(c *gin.Context) {
	var in teacher.RegisterInput
	if !bindJSON(c, &in) {
		return
	}
	t, err := h.Teachers.Register(c.Request.Context(), tenant(c).TenantID(), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "Teacher registered successfully.", t)
}

func (h *handler) listTeachers(c *gin.Context) {
	teachers, err := h.Teachers.List(c.Request.Context(), tenant(c).TenantID(), teacher.Filter{Search: c.Query("search")})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", teachers)
}

func (h *handler) getSelfTeacher(c *gin.Context) {
	claims := tenant(c)
	h.sendTeacher(c, claims.TenantID(), claims.PrincipalID)
}

func (h *handler) getTeacher(c *gin.Context) {
	claims, allowed := selfOrSchool(c, c.Param("id"))
	if !allowed {
		return
	}
	h.sendTeacher(c, claims.TenantID(), c.Param("id"))
}

func (h *handler) sendTeacher(c *gin.Context, schoolID, id string) {
	t, err := h.Teachers.Get(c.Request.Context(), schoolID, id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", t)
}

func (h *handler) updateSelfTeacher(c *gin.Context) {
	claims := tenant(c)
	h.applyTeacherUpdate(c, claims.TenantID(), claims.PrincipalID)
}

func (h *handler) updateTeacher(c *gin.Context) {
	claims, allowed := selfOrSchool(c, c.Param("id"))
	if !allowed {
		return
	}
	h.applyTeacherUpdate(c, claims.TenantID(), c.Param("id"))
}

func (h *handler) applyTeacherUpdate(c *gin.Context, schoolID, id string) {
	var in teacher.UpdateInput
	if !bindJSON(c, &in) {
		return
	}
	t, err := h.Teachers.Update(c.Request.Context(), schoolID, id, in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Teacher updated successfully.", t)
}

func (h *handler) deleteTeacher(c *gin.Context) {
	if err := h.Teachers.Delete(c.Request.Context(), tenant(c).TenantID(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Teacher deleted successfully.", nil)
}

// students

func (h *handler) registerStudent(c *gin.Context) {
	var in student.RegisterInput
	if !bindJSON(c, &in) {
		return
	}
	st, err := h.Students.Register(c.Request.Context(), tenant(c).TenantID(), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "Student registered successfully.", st)
}

func (h *handler) listStudents(c *gin.Context) {
	f := student.Filter{Search: c.Query("search"), ClassID: c.Query("student_class")}
	students, err := h.Students.List(c.Request.Context(), tenant(c).TenantID(), f)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", students)
}

func (h *handler) getSelfStudent(c *gin.Context) {
	claims := tenant(c)
	h.sendStudent(c, claims.TenantID(), claims.PrincipalID)
}

func (h *handler) getStudent(c *gin.Context) {
	claims, allowed := selfOrSchool(c, c.Param("id"))
	if !allowed {
		return
	}
	h.sendStudent(c, claims.TenantID(), c.Param("id"))
}

func (h *handler) sendStudent(c *gin.Context, schoolID, id string) {
	st, err := h.Students.Get(c.Request.Context(), schoolID, id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", st)
}

func (h *handler) updateSelfStudent(c *gin.Context) {
	claims := tenant(c)
	h.applyStudentUpdate(c, claims, claims.PrincipalID)
}

func (h *handler) updateStudent(c *gin.Context) {
	claims, allowed := selfOrSchool(c, c.Param("id"))
	if !allowed {
		return
	}
	h.applyStudentUpdate(c, claims, c.Param("id"))
}

func (h *handler) applyStudentUpdate(c *gin.Context, claims auth.Claims, id string) {
	var in student.UpdateInput
	if !bindJSON(c, &in) {
		return
	}
	if claims.Role != auth.RoleSchool && in.ClassID != nil {
		fail(c, apperr.Forbidden("Only the school can change a student's class."))
		return
	}
	st, err := h.Students.Update(c.Request.Context(), claims.TenantID(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Student updated successfully.", st)
}

func (h *handler) deleteStudent(c *gin.Context) {
	if err := h.Students.Delete(c.Request.Context(), tenant(c).TenantID(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Student deleted successfully.", nil)
}
