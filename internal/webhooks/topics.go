package webhooks

// Topic is a Shopify webhook topic the processor knows how to handle.
type Topic int

const (
	TopicUnknown Topic = iota
	TopicProductsUpdate
	TopicInventoryLevelsUpdate
	TopicOrdersCreate
	TopicAppUninstalled
)

var topicNames = map[Topic]string{
	TopicProductsUpdate:        "products/update",
	TopicInventoryLevelsUpdate: "inventory_levels/update",
	TopicOrdersCreate:          "orders/create",
	TopicAppUninstalled:        "app/uninstalled",
}

// ParseTopic maps the wire name onto a Topic; anything unrecognised is
// TopicUnknown.
func ParseTopic(raw string) Topic {
	for topic, name := range topicNames {
		if name == raw {
			return topic
		}
	}
	return TopicUnknown
}

func (t Topic) String() string {
	if name, ok := topicNames[t]; ok {
		return name
	}
	return "unknown"
}
