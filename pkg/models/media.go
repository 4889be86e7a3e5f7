package models

// Document is a general file attached to a message
type Document struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileName     string `json:"file_name,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
}

// Video is a video attached to a message
type Video struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Duration     int    `json:"duration"`
	FileName     string `json:"file_name,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
}

// Attachment returns the file carried by m, preferring documents, or nil.
func (m *Message) Attachment() *Document {
	switch {
	case m.Document != nil:
		return m.Document
	case m.Video != nil:
		return &Document{
			FileID:       m.Video.FileID,
			FileUniqueID: m.Video.FileUniqueID,
			FileName:     m.Video.FileName,
			MimeType:     m.Video.MimeType,
			FileSize:     m.Video.FileSize,
		}
	default:
		return nil
	}
}

// InlineKeyboardMarkup is the reply_markup of a message with inline buttons
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// InlineKeyboardButton carries either callback data or a URL
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}
