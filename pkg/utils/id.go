package utils

import "go.mongodb.org/mongo-driver/bson/primitive"

// NewID 24 位十六进制 ObjectID，各存储后端统一使用
func NewID() string { return primitive.NewObjectID().Hex() }

func IsValidID(id string) bool { return primitive.IsValidObjectID(id) }
