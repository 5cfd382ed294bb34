package handler

import (
	"encoding/json"
	"net/http"
)

// Envelope единый формат ответа сервиса. Мягкие исходы (пользователь не
// найден, пароль не подошел) уходят с success=true и falsy data, это
// осознанно мягкий стиль протокола, клиенты различают исходы по data.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(env)
}

// Success пишет успешный ответ с данными
func Success(w http.ResponseWriter, data interface{}, message string) {
	writeEnvelope(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// Failed пишет мягкий отказ
func Failed(w http.ResponseWriter, message string) {
	writeEnvelope(w, http.StatusOK, Envelope{Success: false, Message: message})
}

// Error пишет серверную аварию
func Error(w http.ResponseWriter, message string) {
	writeEnvelope(w, http.StatusInternalServerError, Envelope{Success: false, Message: message})
}

// Unauthorized пишет отказ в доступе
func Unauthorized(w http.ResponseWriter, message string) {
	writeEnvelope(w, http.StatusUnauthorized, Envelope{Success: false, Message: message})
}

// IncompleteData пишет отказ из-за неполных входных данных
func IncompleteData(w http.ResponseWriter, message string) {
	writeEnvelope(w, http.StatusBadRequest, Envelope{Success: false, Message: message})
}

// TooManyRequests пишет отказ из-за превышения лимита запросов
func TooManyRequests(w http.ResponseWriter, message string) {
	writeEnvelope(w, http.StatusTooManyRequests, Envelope{Success: false, Message: message})
}

// NothingAffected пишет исход "операция ничего не изменила"
func NothingAffected(w http.ResponseWriter, message string) {
	writeEnvelope(w, http.StatusOK, Envelope{Success: false, Message: message})
}
