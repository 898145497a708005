// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package mongo provides the public bulk write API. A Bulk collects insert,
// update, and delete operations against one collection, splits them into
// size-bounded single-kind batches, and executes the batches sequentially,
// reconciling every server response into one cumulative result whose indexes
// refer to the caller's submission order.
//
// A Bulk is created in ordered or unordered mode. Ordered mode preserves
// submission order across batches and halts at the first error. Unordered
// mode groups operations by kind so interleaved submissions still pack into
// full batches; execution remains sequential and still halts on error, so
// "unordered" refers to batch packing, not concurrency.
package mongo
