package service_test

import (
	"testing"

	"github.com/SergeiKhy/shortlink/internal/service"
	"github.com/stretchr/testify/assert"
)

func TestClientClassifier_IsAutomated(t *testing.T) {
	classifier := service.NewClientClassifier()

	tests := []struct {
		name      string
		userAgent string
		automated bool
	}{
		{name: "пустой", userAgent: "", automated: false},
		{name: "chrome", userAgent: humanUA, automated: false},
		{name: "safari ios", userAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1", automated: false},
		{name: "slack", userAgent: slackUA, automated: true},
		{name: "telegram", userAgent: "TelegramBot (like TwitterBot)", automated: true},
		{name: "facebook", userAgent: "facebookexternalhit/1.1 (+http://www.facebook.com/externalhit_uatext.php)", automated: true},
		{name: "discord", userAgent: "Mozilla/5.0 (compatible; Discordbot/2.0; +https://discordapp.com)", automated: true},
		{name: "googlebot", userAgent: "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", automated: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.automated, classifier.IsAutomated(tt.userAgent))
		})
	}
}
