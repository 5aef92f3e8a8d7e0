package stt_test

import (
	"github.com/mustafaiq320-svg/salamatuk/adapters/stt"
	"github.com/mustafaiq320-svg/salamatuk/domain/repositories"
)

var _ repositories.SpeechToText = &stt.GoogleSpeechToText{}
