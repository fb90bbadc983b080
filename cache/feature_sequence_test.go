/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureSequenceCache_PushMapsByNameOrderAndZeroPads(t *testing.T) {
	c := NewFeatureSequenceCache([]string{"a", "b", "missing"}, 5)
	c.Push(map[string]float64{"a": 1, "b": 2})

	matrix := c.GetMatrix()
	require.Len(t, matrix, 1)
	assert.Equal(t, []float64{1, 2, 0}, matrix[0])
}

func TestFeatureSequenceCache_ReadyOnceFull(t *testing.T) {
	c := NewFeatureSequenceCache([]string{"a"}, 2)
	assert.False(t, c.Ready())
	c.Push(map[string]float64{"a": 1})
	assert.False(t, c.Ready())
	c.Push(map[string]float64{"a": 2})
	assert.True(t, c.Ready())
}

func TestFeatureSequenceCache_GetMatrixIsChronologicalAndEvicts(t *testing.T) {
	c := NewFeatureSequenceCache([]string{"a"}, 2)
	c.Push(map[string]float64{"a": 1})
	c.Push(map[string]float64{"a": 2})
	c.Push(map[string]float64{"a": 3})

	matrix := c.GetMatrix()
	require.Len(t, matrix, 2)
	assert.Equal(t, 2.0, matrix[0][0])
	assert.Equal(t, 3.0, matrix[1][0])
}

func TestFeatureSequenceCache_GetScaledMatrix_NilScalerIsIdentity(t *testing.T) {
	c := NewFeatureSequenceCache([]string{"a", "b"}, 2)
	c.Push(map[string]float64{"a": 10, "b": 20})

	assert.Equal(t, c.GetMatrix(), c.GetScaledMatrix())
}

func TestFeatureSequenceCache_GetScaledMatrix_AppliesAffineTransform(t *testing.T) {
	c := NewFeatureSequenceCache([]string{"a", "b"}, 2)
	c.SetScaler(&Scaler{Mean: []float64{10, 0}, Std: []float64{5, 2}})
	c.Push(map[string]float64{"a": 20, "b": 4})

	scaled := c.GetScaledMatrix()
	require.Len(t, scaled, 1)
	assert.InDelta(t, 2.0, scaled[0][0], 1e-9)
	assert.InDelta(t, 2.0, scaled[0][1], 1e-9)
}

func TestFeatureSequenceCache_GetScaledMatrix_MissingStdDefaultsToOne(t *testing.T) {
	c := NewFeatureSequenceCache([]string{"a"}, 1)
	c.SetScaler(&Scaler{Mean: []float64{5}, Std: nil})
	c.Push(map[string]float64{"a": 8})

	scaled := c.GetScaledMatrix()
	assert.InDelta(t, 3.0, scaled[0][0], 1e-9)
}
