package service

import (
	"strings"

	"github.com/x-way/crawlerdetect"
)

// ClientClassifier определяет, пришёл ли запрос от автоматического клиента
type ClientClassifier interface {
	IsAutomated(userAgent string) bool
}

// Боты мессенджеров и соцсетей, которые разворачивают превью ссылок
var unfurlAgents = []string{
	"slackbot",
	"twitterbot",
	"facebookexternalhit",
	"discordbot",
	"telegrambot",
	"whatsapp",
	"linkedinbot",
	"skypeuripreview",
	"embedly",
}

type userAgentClassifier struct{}

// NewClientClassifier классификатор по User-Agent на базе crawlerdetect
func NewClientClassifier() ClientClassifier {
	return userAgentClassifier{}
}

func (userAgentClassifier) IsAutomated(userAgent string) bool {
	if strings.TrimSpace(userAgent) == "" {
		return false
	}

	ua := strings.ToLower(userAgent)
	for _, agent := range unfurlAgents {
		if strings.Contains(ua, agent) {
			return true
		}
	}

	return crawlerdetect.IsCrawler(userAgent)
}
