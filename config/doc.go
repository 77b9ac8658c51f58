/*
Package config loads the dynormo project configuration.

The configuration is read from dynormo.yaml (or dynormo.yml, or the JSON file
dynormo.config.json):

	entities:
	  - schemas/user.json
	  - schemas/order.yaml
	tables:
	  Order: orders-prod
	region: eu-central-1
	logger: [log, warn, error]
	output: internal/models

Credentials are never read from the file. AWS_ACCESS_KEY, AWS_SECRET_KEY,
AWS_REGION and DYNORMO_ENDPOINT are taken from the environment, optionally
populated from a .env file.
*/
package config
