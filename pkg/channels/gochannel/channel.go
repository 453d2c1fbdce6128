// Package gochannel provides the in-process event bus backend.
package gochannel

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// OutputBuffer bounds the per-subscriber backlog of the in-process bus.
const OutputBuffer = 256

// CreateChannel returns one GoChannel used as both publisher and subscriber.
// Publishing never waits for subscribers to acknowledge.
func CreateChannel(logger watermill.LoggerAdapter) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            OutputBuffer,
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		logger,
	)

	return pubSub, pubSub, nil
}
