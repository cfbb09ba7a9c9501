package shopify

const metafieldFields = `metafield(namespace: $namespace, key: $key) {
      value
      compareDigest
    }`

// customerAccountReadQuery reads the metafield of the customer the token belongs to
const customerAccountReadQuery = `query CustomerConnections($namespace: String!, $key: String!) {
  customer {
    id
    ` + metafieldFields + `
  }
}`

// adminReadQuery reads the metafield of an explicit customer
const adminReadQuery = `query CustomerConnections($id: ID!, $namespace: String!, $key: String!) {
  customer(id: $id) {
    id
    ` + metafieldFields + `
  }
}`

// setMetafieldMutation replaces the value; compareDigest null means the
// metafield must not exist yet
const setMetafieldMutation = `mutation SetConnections($metafields: [MetafieldsSetInput!]!) {
  metafieldsSet(metafields: $metafields) {
    metafields {
      key
      namespace
      compareDigest
    }
    userErrors {
      field
      message
      code
    }
  }
}`

type metafieldNode struct {
	Value         string `json:"value"`
	CompareDigest string `json:"compareDigest"`
}

type customerNode struct {
	ID        string         `json:"id"`
	Metafield *metafieldNode `json:"metafield"`
}

type readResponse struct {
	Customer *customerNode `json:"customer"`
}

// UserError is one entry of a mutation's userErrors
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
	Code    string   `json:"code"`
}

type setResponse struct {
	MetafieldsSet struct {
		Metafields []struct {
			Key           string `json:"key"`
			Namespace     string `json:"namespace"`
			CompareDigest string `json:"compareDigest"`
		} `json:"metafields"`
		UserErrors []UserError `json:"userErrors"`
	} `json:"metafieldsSet"`
}
