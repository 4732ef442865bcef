package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"

	"todoagent/internal/domain/entities"
	"todoagent/pkg/validation"
)

func render(fn func(c *gin.Context)) (*httptest.ResponseRecorder, ErrorResponse) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	fn(c)

	var body ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)

	return w, body
}

func TestSendDomainError_Validation(t *testing.T) {
	RegisterTestingT(t)

	err := fmt.Errorf("create: %w", &entities.ValidationError{Violations: []validation.Violation{{
		Field:   "name",
		Message: "name is required",
	}}})

	w, body := render(func(c *gin.Context) { SendDomainError(c, err) })

	Expect(w.Code).To(Equal(http.StatusBadRequest))
	Expect(body.Error.Code).To(Equal("VALIDATION_ERROR"))
	Expect(body.Error.Errors).To(ConsistOf(validation.Violation{Field: "name", Message: "name is required"}))
}

func TestSendDomainError_Storage(t *testing.T) {
	RegisterTestingT(t)

	err := &entities.StorageError{Op: "parse", Path: "/secret/todos.json", Err: errors.New("boom")}

	w, body := render(func(c *gin.Context) { SendDomainError(c, err) })

	Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
	Expect(body.Error.Code).To(Equal("STORAGE_UNAVAILABLE"))
	Expect(w.Body.String()).NotTo(ContainSubstring("/secret"))
}

func TestSendDomainError_Unknown(t *testing.T) {
	RegisterTestingT(t)

	w, body := render(func(c *gin.Context) { SendDomainError(c, errors.New("boom")) })

	Expect(w.Code).To(Equal(http.StatusInternalServerError))
	Expect(body.Error.Code).To(Equal("INTERNAL_ERROR"))
}

func TestSendValidationError_PlainError(t *testing.T) {
	RegisterTestingT(t)

	w, body := render(func(c *gin.Context) { SendValidationError(c, errors.New("unexpected EOF")) })

	Expect(w.Code).To(Equal(http.StatusBadRequest))
	Expect(body.Error.Errors).To(HaveLen(1))
	Expect(body.Error.Errors[0].Field).To(Equal("body"))
}

func TestSendNotFoundError(t *testing.T) {
	RegisterTestingT(t)

	w, body := render(func(c *gin.Context) { SendNotFoundError(c, "To-do item not found") })

	Expect(w.Code).To(Equal(http.StatusNotFound))
	Expect(body.Error.Code).To(Equal("NOT_FOUND"))
	Expect(body.Error.Errors[0].Message).To(Equal("To-do item not found"))
}
