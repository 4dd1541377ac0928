package gmailclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildMessage(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		subject string
		body    string
		want    string
	}{
		{
			name:    "with sender",
			from:    "chief@example.com",
			subject: "Schedule published",
			body:    "line one\nline two",
			want: "From: chief@example.com\r\n" +
				"To: ada@example.com\r\n" +
				"Subject: Schedule published\r\n" +
				"MIME-Version: 1.0\r\n" +
				"Content-Type: text/plain; charset=\"UTF-8\"\r\n" +
				"\r\n" +
				"line one\r\nline two",
		},
		{
			name:    "without sender",
			subject: "Hi",
			body:    "body",
			want: "To: ada@example.com\r\n" +
				"Subject: Hi\r\n" +
				"MIME-Version: 1.0\r\n" +
				"Content-Type: text/plain; charset=\"UTF-8\"\r\n" +
				"\r\n" +
				"body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildMessage(tt.from, "ada@example.com", tt.subject, tt.body)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestBuildMessage_EncodesNonASCIISubject(t *testing.T) {
	got := string(buildMessage("", "ada@example.com", "Planning août", "x"))
	assert.Contains(t, got, "Subject: =?utf-8?q?Planning_ao=C3=BBt?=\r\n")
}
