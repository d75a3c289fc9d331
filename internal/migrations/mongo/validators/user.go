package validators

import "go.mongodb.org/mongo-driver/bson"

var UserValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"email",
			"mobile",
			"password",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},

			"email": bson.M{
				"bsonType":  "string",
				"minLength": 3,
			},

			"mobile": bson.M{
				"bsonType": "string",
				"pattern":  "^[6-9][0-9]{9}$",
			},

			"password": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
