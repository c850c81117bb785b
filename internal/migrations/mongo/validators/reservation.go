package validators

import "go.mongodb.org/mongo-driver/bson"

// DatePattern matches the YYYY-MM-DD strings dates are stored as.
const DatePattern = `^[0-9]{4}-[0-9]{2}-[0-9]{2}$`

var ReservationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"spot_id",
			"user_id",
			"start_date",
			"end_date",
			"seq",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"spot_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"start_date": bson.M{
				"bsonType": "string",
				"pattern":  DatePattern,
			},

			"end_date": bson.M{
				"bsonType": "string",
				"pattern":  DatePattern,
			},

			"seq": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},

			"created_at": bson.M{"bsonType": "date"},
			"updated_at": bson.M{"bsonType": "date"},
		},
	},
}

var ReservationGuardValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"seq"},
		"properties": bson.M{
			"_id":        bson.M{"bsonType": "string"},
			"seq":        bson.M{"bsonType": "long", "minimum": 0},
			"updated_at": bson.M{"bsonType": "date"},
		},
	},
}
