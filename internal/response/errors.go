package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrPermissionDenied  ErrCode = "PERMISSION_DENIED"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Exam session ──────────────────────────────────────────────────
	ErrCategoryCompleted     ErrCode = "CATEGORY_ALREADY_COMPLETED"
	ErrExamNotYetOpen        ErrCode = "EXAM_NOT_YET_OPEN"
	ErrExamWindowExpired     ErrCode = "EXAM_WINDOW_EXPIRED"
	ErrInsufficientQuestions ErrCode = "INSUFFICIENT_QUESTIONS"
	ErrCategoryNotConfigured ErrCode = "CATEGORY_NOT_CONFIGURED"
	ErrStaleQuestion         ErrCode = "STALE_QUESTION"
	ErrSessionTimeUp         ErrCode = "SESSION_TIME_UP"
	ErrInvalidOption         ErrCode = "INVALID_OPTION"
	ErrQuestionUnanswered    ErrCode = "QUESTION_UNANSWERED"
	ErrSessionNotFound       ErrCode = "SESSION_NOT_FOUND"
	ErrSessionBusy           ErrCode = "SESSION_BUSY"
	ErrResultNotFound        ErrCode = "RESULT_NOT_FOUND"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Username/email atau kata sandi salah."
	case ErrSessionInvalidated:
		return "Sesi Anda telah berakhir. Silakan login kembali."
	case ErrTokenRequired:
		return "Token autentikasi diperlukan."
	case ErrTokenInvalid:
		return "Token autentikasi tidak valid."
	case ErrTokenExpired:
		return "Token autentikasi telah kedaluwarsa."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "Anda tidak memiliki izin untuk mengakses sumber daya ini."
	case ErrPermissionDenied:
		return "Izin ditolak."
	case ErrStudentAccessOnly:
		return "Sumber daya ini terbatas untuk siswa."
	case ErrAdminAccessOnly:
		return "Sumber daya ini terbatas untuk administrator."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidID:
		return "Format ID tidak valid."
	case ErrInvalidPayload:
		return "Payload permintaan tidak valid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Sumber daya tidak ditemukan."

	// ─── Exam session ──────────────────────────────────────────────────
	case ErrCategoryCompleted:
		return "Kategori ini sudah Anda selesaikan."
	case ErrExamNotYetOpen:
		return "Ujian belum dibuka."
	case ErrExamWindowExpired:
		return "Waktu pelaksanaan ujian telah berakhir."
	case ErrInsufficientQuestions:
		return "Soal untuk kategori ini belum tersedia. Hubungi pengawas."
	case ErrCategoryNotConfigured:
		return "Bobot nilai kategori ini belum diatur. Hubungi pengawas."
	case ErrStaleQuestion:
		return "Soal ini sudah tidak aktif. Muat ulang halaman."
	case ErrSessionTimeUp:
		return "Waktu mengerjakan telah habis. Jawaban Anda telah dikumpulkan."
	case ErrInvalidOption:
		return "Pilihan jawaban tidak valid."
	case ErrQuestionUnanswered:
		return "Jawab atau lewati soal ini terlebih dahulu."
	case ErrSessionNotFound:
		return "Sesi ujian tidak ditemukan."
	case ErrSessionBusy:
		return "Sesi sedang diperbarui. Silakan coba lagi."
	case ErrResultNotFound:
		return "Hasil ujian tidak ditemukan."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
